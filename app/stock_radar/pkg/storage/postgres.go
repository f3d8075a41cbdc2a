// Package storage 将分析运行和各任务输出保存到 PostgreSQL。
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

// 运行状态
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Storage struct {
	db *sql.DB
}

// DSN 生成 lib/pq 连接串
func DSN(cfg config.DBConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Name)
}

// NewStorage 连接数据库并初始化表结构
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id UUID PRIMARY KEY,
		ticker TEXT NOT NULL,
		date_label TEXT,
		status TEXT NOT NULL,
		final_report TEXT,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS task_outputs (
		id SERIAL PRIMARY KEY,
		run_id UUID REFERENCES analysis_runs(id),
		task_name TEXT NOT NULL,
		agent TEXT,
		output TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_outputs_run_id ON task_outputs(run_id)`,
}

// EnsureSchema 创建 analysis_runs 和 task_outputs，已存在时跳过
func EnsureSchema(db *sql.DB) error {
	for _, query := range schema {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// CreateRun 新建一条运行记录
func (s *Storage) CreateRun(ctx context.Context, ticker, dateLabel string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, ticker, date_label, status)
		VALUES ($1, $2, $3, $4)`,
		id, ticker, dateLabel, StatusRunning)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// SaveTaskOutput 保存单个任务的输出
func (s *Storage) SaveTaskOutput(ctx context.Context, runID uuid.UUID, out dm.TaskOutput) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_outputs (run_id, task_name, agent, output)
		VALUES ($1, $2, $3, $4)`,
		runID, out.Name, out.Agent, sanitize(out.Raw))
	if err != nil {
		return fmt.Errorf("failed to insert task output: %w", err)
	}
	return nil
}

// FinishRun 记录运行结果，runErr 非空时状态为 failed
func (s *Storage) FinishRun(ctx context.Context, runID uuid.UUID, final string, runErr error) error {
	status, errText := StatusSucceeded, ""
	if runErr != nil {
		status, errText = StatusFailed, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_runs
		SET status = $2, final_report = $3, error = $4, finished_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		runID, status, sanitize(final), sanitize(errText))
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// sanitize 移除无效的 UTF-8 字符和 NULL 字节，PostgreSQL 文本字段不支持 NULL 字节
func sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
