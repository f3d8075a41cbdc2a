package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/stock_radar/app/display/internal/domain"
	"github.com/iWorld-y/stock_radar/app/display/internal/usecase"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/report"
)

const timeLayout = "2006-01-02 15:04:05"

type ListReportsReq struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

type ReportSummary struct {
	Id        string `json:"id"`
	Ticker    string `json:"ticker"`
	DateLabel string `json:"date_label"`
	Status    string `json:"status"`
	TaskCount int32  `json:"task_count"`
	CreatedAt string `json:"created_at"`
}

type ListReportsReply struct {
	Reports []*ReportSummary `json:"reports"`
	Total   int32            `json:"total"`
}

type GetReportReq struct {
	Id string `json:"id"`
}

type TaskOutput struct {
	Name      string `json:"name"`
	Agent     string `json:"agent"`
	Output    string `json:"output"`
	CreatedAt string `json:"created_at"`
}

type GetReportReply struct {
	ReportSummary
	FinalReport     string        `json:"final_report"`
	FinalReportHtml string        `json:"final_report_html"`
	Error           string        `json:"error,omitempty"`
	FinishedAt      string        `json:"finished_at,omitempty"`
	Tasks           []*TaskOutput `json:"tasks"`
}

type DisplayService struct {
	ucReport *usecase.ReportUseCase
	log      *log.Helper
}

func NewDisplayService(ucReport *usecase.ReportUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		ucReport: ucReport,
		log:      log.NewHelper(logger),
	}
}

func (s *DisplayService) ListReports(ctx context.Context, req *ListReportsReq) (*ListReportsReply, error) {
	runs, total, err := s.ucReport.List(ctx, int(req.Page), int(req.PageSize))
	if err != nil {
		return nil, err
	}

	list := make([]*ReportSummary, 0, len(runs))
	for _, r := range runs {
		list = append(list, toSummary(r))
	}

	return &ListReportsReply{
		Reports: list,
		Total:   int32(total),
	}, nil
}

func (s *DisplayService) GetReport(ctx context.Context, req *GetReportReq) (*GetReportReply, error) {
	d, err := s.ucReport.Get(ctx, req.Id)
	if err != nil {
		return nil, err
	}

	reply := &GetReportReply{
		ReportSummary: *toSummary(&d.RunSummary),
		FinalReport:   d.FinalReport,
		Error:         d.Error,
		Tasks:         make([]*TaskOutput, 0, len(d.Tasks)),
	}
	if d.FinishedAt != nil {
		reply.FinishedAt = d.FinishedAt.Format(timeLayout)
	}
	if d.FinalReport != "" {
		html, err := report.RenderMarkdown(d.FinalReport)
		if err != nil {
			// 渲染失败时前端退回显示原文
			s.log.WithContext(ctx).Warnf("渲染报告失败: id=%s err=%v", d.ID, err)
		} else {
			reply.FinalReportHtml = string(html)
		}
	}
	for _, t := range d.Tasks {
		reply.Tasks = append(reply.Tasks, &TaskOutput{
			Name:      t.Name,
			Agent:     t.Agent,
			Output:    t.Output,
			CreatedAt: formatTime(t.CreatedAt),
		})
	}
	return reply, nil
}

func toSummary(r *domain.RunSummary) *ReportSummary {
	return &ReportSummary{
		Id:        r.ID,
		Ticker:    r.Ticker,
		DateLabel: r.DateLabel,
		Status:    r.Status,
		TaskCount: int32(r.TaskCount),
		CreatedAt: formatTime(r.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
