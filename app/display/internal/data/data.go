package data

import (
	"database/sql"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/stock_radar/app/display/internal/conf"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/storage"
	_ "github.com/lib/pq"
)

type Data struct {
	db *sql.DB
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	if c == nil || c.Database == nil {
		return nil, nil, fmt.Errorf("database config is required")
	}
	driver := c.Database.Driver
	if driver == "" {
		driver = "postgres"
	}
	db, err := sql.Open(driver, c.Database.Source)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	// 分析程序还没运行过时表可能不存在
	if err := storage.EnsureSchema(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init report tables: %w", err)
	}

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		db.Close()
	}
	return &Data{db: db}, cleanup, nil
}
