package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/crew"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/llm"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/report"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search/factory"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/snapshot"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/storage"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/tools"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/yahoo"
)

func main() {
	configPath := flag.String("config", "app/stock_radar/configs/config.yaml", "配置文件路径")
	flag.Parse()

	fmt.Println("Stock Analysis Crew Multi Agent Started")

	// 1. 加载 .env 和配置
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("无法加载 .env: %v", err)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置错误: %v", err)
	}

	// 2. 初始化日志
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	// 3. 读取股票代码
	ticker, err := promptTicker(os.Stdin)
	if err != nil {
		logger.Log.Fatalf("读取股票代码失败: %v", err)
	}

	ctx := context.Background()
	if err := run(ctx, cfg, ticker); err != nil {
		logger.Log.Fatalf("分析失败: %v", err)
	}
}

func promptTicker(in io.Reader) (string, error) {
	fmt.Print("Which company would you like to analyze? Enter ticker (e.g. AAPL): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	ticker := strings.ToUpper(strings.TrimSpace(line))
	if ticker == "" {
		return "", fmt.Errorf("ticker is empty")
	}
	return ticker, nil
}

func run(ctx context.Context, cfg *config.Config, ticker string) error {
	now := time.Now()

	// 模型只创建一次，共享同一个限流器
	limiter := llm.NewLimiter(cfg.Concurrency.RPM, cfg.Concurrency.QPS)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limiter.Limit(), limiter.Burst())

	defaultModel, err := llm.NewOpenAI(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	investModel, err := llm.NewFromConfig(ctx, cfg.InvestLLM)
	if err != nil {
		return err
	}

	// 财务数据和搜索
	policy, err := snapshot.ParsePolicy(cfg.Finance.MissingPeriodPolicy)
	if err != nil {
		return err
	}
	provider := yahoo.NewClient(yahoo.Config{
		ChartBaseURL:      cfg.Finance.ChartBaseURL,
		TimeseriesBaseURL: cfg.Finance.TimeseriesBaseURL,
		RetryCount:        cfg.Finance.RetryCount,
		Timeout:           time.Duration(cfg.Finance.Timeout) * time.Second,
	})
	defer provider.Close()

	searcher, err := factory.NewSearcher(cfg.Search)
	if err != nil {
		return fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	deps := crew.Dependencies{
		DefaultModel: llm.WithLimiter(defaultModel, limiter),
		InvestModel:  llm.WithLimiter(investModel, limiter),
		StockTool:    tools.NewStockAnalysisTool(snapshot.NewBuilder(provider, policy)),
		SearchTool:   tools.NewWebSearchTool(searcher),
	}

	c, err := crew.NewStockAnalysisCrew(ticker, now, deps, cfg.Prompts)
	if err != nil {
		return err
	}

	// 如果配置了数据库信息，则记录本次运行
	store, runID := openStore(ctx, cfg, ticker, c.Date)
	if store != nil {
		defer store.Close()
		c.AddObserver(storage.NewRecorder(store, runID))
	}

	out, runErr := c.Kickoff(ctx)
	if store != nil {
		final := ""
		if out != nil {
			final = out.Raw
		}
		if err := store.FinishRun(ctx, runID, final, runErr); err != nil {
			logger.Log.Errorf("更新运行记录失败: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Println("Analysis Result")
	fmt.Println(out)

	rep := &report.Report{Ticker: ticker, Date: now, Output: out}
	path, err := rep.WriteMarkdown(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("写入报告失败: %w", err)
	}
	logger.Log.Infof("报告已保存: %s", path)

	if cfg.Output.HTML {
		path, err := rep.WriteHTML(cfg.Output.Dir)
		if err != nil {
			return fmt.Errorf("写入 HTML 报告失败: %w", err)
		}
		logger.Log.Infof("HTML 报告已保存: %s", path)
	}
	return nil
}
