package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	InvestLLM   LLMConfig         `yaml:"invest_llm"`
	Search      SearchConfig      `yaml:"search"`
	Finance     FinanceConfig     `yaml:"finance"`
	Prompts     PromptsConfig     `yaml:"prompts"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai 或 anthropic，默认 openai
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider string        `yaml:"provider"`
	Serper   SerperConfig  `yaml:"serper"`
	Tavily   TavilyConfig  `yaml:"tavily"`
	SearXNG  SearXNGConfig `yaml:"searxng"`
}

// SerperConfig Serper 配置
type SerperConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// FinanceConfig 行情/财报数据源配置
type FinanceConfig struct {
	ChartBaseURL      string `yaml:"chart_base_url"`
	TimeseriesBaseURL string `yaml:"timeseries_base_url"`
	RetryCount        int    `yaml:"retry_count"`
	Timeout           int    `yaml:"timeout"` // 秒，0 表示不限制
	// MissingPeriodPolicy 缺少上一期数据时的处理方式: strict 或 lenient
	MissingPeriodPolicy string `yaml:"missing_period_policy"`
}

// PromptsConfig 角色/任务模板路径
type PromptsConfig struct {
	Agents string `yaml:"agents"`
	Tasks  string `yaml:"tasks"`
}

// OutputConfig 报告输出配置
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	HTML bool   `yaml:"html"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

const (
	defaultChartBaseURL      = "https://query1.finance.yahoo.com"
	defaultTimeseriesBaseURL = "https://query2.finance.yahoo.com"
	defaultAgentsPath        = "app/stock_radar/configs/agents.yaml"
	defaultTasksPath         = "app/stock_radar/configs/tasks.yaml"
)

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse 解析 yaml 内容并填充默认值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.InvestLLM.Provider == "" {
		c.InvestLLM.Provider = "openai"
	}
	if c.Search.Provider == "" {
		c.Search.Provider = "serper"
	}
	if c.Finance.ChartBaseURL == "" {
		c.Finance.ChartBaseURL = defaultChartBaseURL
	}
	if c.Finance.TimeseriesBaseURL == "" {
		c.Finance.TimeseriesBaseURL = defaultTimeseriesBaseURL
	}
	if c.Finance.MissingPeriodPolicy == "" {
		c.Finance.MissingPeriodPolicy = "strict"
	}
	if c.Prompts.Agents == "" {
		c.Prompts.Agents = defaultAgentsPath
	}
	if c.Prompts.Tasks == "" {
		c.Prompts.Tasks = defaultTasksPath
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
}

// LoadEnv 加载本地 .env 文件，文件不存在时忽略
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv 使用环境变量覆盖配置中的密钥
func (c *Config) ApplyEnv() {
	setFromEnv(&c.LLM.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setFromEnv(&c.LLM.Model, "OPENAI_MODEL_NAME")
	switch c.InvestLLM.Provider {
	case "anthropic":
		setFromEnv(&c.InvestLLM.APIKey, "ANTHROPIC_API_KEY")
	default:
		setFromEnv(&c.InvestLLM.APIKey, "OPENAI_API_KEY")
		setFromEnv(&c.InvestLLM.BaseURL, "OPENAI_BASE_URL")
	}
	setFromEnv(&c.Search.Serper.APIKey, "SERPER_API_KEY")
	setFromEnv(&c.Search.Tavily.APIKey, "TAVILY_API_KEY")
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate 检查必填配置，一次性返回所有缺失项
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key (OPENAI_API_KEY)")
	}
	if c.LLM.Model == "" {
		missing = append(missing, "llm.model")
	}
	if c.InvestLLM.Model == "" {
		missing = append(missing, "invest_llm.model")
	}
	if c.InvestLLM.APIKey == "" {
		missing = append(missing, "invest_llm.api_key")
	}

	switch c.Search.Provider {
	case "serper":
		if c.Search.Serper.APIKey == "" {
			missing = append(missing, "search.serper.api_key (SERPER_API_KEY)")
		}
	case "tavily":
		if c.Search.Tavily.APIKey == "" {
			missing = append(missing, "search.tavily.api_key (TAVILY_API_KEY)")
		}
	case "searxng":
		if c.Search.SearXNG.BaseURL == "" {
			missing = append(missing, "search.searxng.base_url")
		}
	default:
		return fmt.Errorf("unknown search provider: %s", c.Search.Provider)
	}

	switch c.Finance.MissingPeriodPolicy {
	case "strict", "lenient":
	default:
		return fmt.Errorf("unknown finance.missing_period_policy: %s", c.Finance.MissingPeriodPolicy)
	}

	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}
