package domain

import "time"

// TaskOutput 单个任务的输出
type TaskOutput struct {
	Name      string
	Agent     string
	Output    string
	CreatedAt time.Time
}

// RunSummary 分析运行摘要
type RunSummary struct {
	ID        string
	Ticker    string
	DateLabel string
	Status    string
	TaskCount int
	CreatedAt time.Time
}

// RunDetail 分析运行详情
type RunDetail struct {
	RunSummary
	FinalReport string
	Error       string
	FinishedAt  *time.Time
	Tasks       []TaskOutput
}
