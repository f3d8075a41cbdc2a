package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/storage"
)

// openStore 连接数据库并创建运行记录，未配置或失败时返回 nil，不影响分析
func openStore(ctx context.Context, cfg *config.Config, ticker, date string) (*storage.Storage, uuid.UUID) {
	if cfg.DB.Host == "" {
		logger.Log.Info("未配置数据库信息，跳过数据库连接")
		return nil, uuid.Nil
	}

	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		logger.Log.Errorf("无法连接数据库: %v. 将仅生成报告文件。", err)
		return nil, uuid.Nil
	}
	logger.Log.Info("已成功连接到数据库")

	runID, err := store.CreateRun(ctx, ticker, date)
	if err != nil {
		logger.Log.Errorf("无法创建运行记录: %v", err)
		store.Close()
		return nil, uuid.Nil
	}
	return store, runID
}
