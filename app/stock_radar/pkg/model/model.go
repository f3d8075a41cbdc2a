package model

// AgentConfig 角色配置 (来自 agents.yaml)
type AgentConfig struct {
	Role      string `yaml:"role"`      // 角色名称
	Goal      string `yaml:"goal"`      // 角色目标
	Backstory string `yaml:"backstory"` // 背景设定
}

// TaskConfig 任务配置 (来自 tasks.yaml)
type TaskConfig struct {
	Description    string `yaml:"description"`     // 任务描述
	ExpectedOutput string `yaml:"expected_output"` // 期望输出
	Agent          string `yaml:"agent"`           // 负责的角色 ID，可选
}

// TaskOutput 单个任务的执行结果
type TaskOutput struct {
	Name   string `json:"name"`
	Agent  string `json:"agent"`
	Raw    string `json:"raw"`
	Prompt string `json:"-"`
}

// CrewOutput 整个流水线的输出，Raw 为最后一个任务的结果
type CrewOutput struct {
	Raw   string       `json:"raw"`
	Tasks []TaskOutput `json:"tasks"`
}

// String 返回最终报告原文
func (o *CrewOutput) String() string {
	if o == nil {
		return ""
	}
	return o.Raw
}
