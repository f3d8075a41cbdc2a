package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/iWorld-y/stock_radar/app/display/internal/domain"
)

// ReportRepo 报表仓库接口
type ReportRepo interface {
	// ListRuns 按创建时间倒序分页获取运行摘要，同时返回总数
	ListRuns(ctx context.Context, page, pageSize int) ([]*domain.RunSummary, int, error)
	// GetRun 获取运行详情及其任务输出
	GetRun(ctx context.Context, id uuid.UUID) (*domain.RunDetail, error)
}
