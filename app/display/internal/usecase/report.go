package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/iWorld-y/stock_radar/app/display/internal/domain"
	"github.com/iWorld-y/stock_radar/app/display/internal/repo"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ReportUseCase 报表业务逻辑
type ReportUseCase struct {
	repo repo.ReportRepo
	log  *log.Helper
}

// NewReportUseCase 创建报表业务逻辑实例
func NewReportUseCase(repo repo.ReportRepo, logger log.Logger) *ReportUseCase {
	return &ReportUseCase{repo: repo, log: log.NewHelper(logger)}
}

// List 分页列出运行摘要，page 从 1 开始
func (uc *ReportUseCase) List(ctx context.Context, page, pageSize int) ([]*domain.RunSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return uc.repo.ListRuns(ctx, page, pageSize)
}

// Get 根据运行 ID 获取详情
func (uc *ReportUseCase) Get(ctx context.Context, id string) (*domain.RunDetail, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.BadRequest("INVALID_REPORT_ID", "report id must be a uuid")
	}
	d, err := uc.repo.GetRun(ctx, runID)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("获取报告失败: id=%s err=%v", id, err)
		return nil, err
	}
	return d, nil
}
