package data

import (
	"context"
	"database/sql"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/iWorld-y/stock_radar/app/display/internal/domain"
	"github.com/iWorld-y/stock_radar/app/display/internal/repo"
)

type reportRepo struct {
	data *Data
	log  *log.Helper
}

func NewReportRepo(data *Data, logger log.Logger) repo.ReportRepo {
	return &reportRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *reportRepo) ListRuns(ctx context.Context, page, pageSize int) ([]*domain.RunSummary, int, error) {
	offset := (page - 1) * pageSize

	rows, err := r.data.db.QueryContext(ctx, `
		SELECT r.id, r.ticker, COALESCE(r.date_label, ''), r.status, r.created_at, COUNT(t.id)
		FROM analysis_runs r
		LEFT JOIN task_outputs t ON t.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
		LIMIT $1 OFFSET $2`, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []*domain.RunSummary
	for rows.Next() {
		var (
			s  domain.RunSummary
			id uuid.UUID
		)
		if err := rows.Scan(&id, &s.Ticker, &s.DateLabel, &s.Status, &s.CreatedAt, &s.TaskCount); err != nil {
			return nil, 0, err
		}
		s.ID = id.String()
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.data.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

func (r *reportRepo) GetRun(ctx context.Context, id uuid.UUID) (*domain.RunDetail, error) {
	var (
		d        domain.RunDetail
		finished sql.NullTime
	)
	err := r.data.db.QueryRowContext(ctx, `
		SELECT ticker, COALESCE(date_label, ''), status, COALESCE(final_report, ''),
		       COALESCE(error, ''), created_at, finished_at
		FROM analysis_runs WHERE id = $1`, id).
		Scan(&d.Ticker, &d.DateLabel, &d.Status, &d.FinalReport, &d.Error, &d.CreatedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kerrors.NotFound("REPORT_NOT_FOUND", "report not found")
		}
		return nil, err
	}
	d.ID = id.String()
	if finished.Valid {
		d.FinishedAt = &finished.Time
	}

	rows, err := r.data.db.QueryContext(ctx, `
		SELECT task_name, COALESCE(agent, ''), COALESCE(output, ''), created_at
		FROM task_outputs WHERE run_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.TaskOutput
		if err := rows.Scan(&t.Name, &t.Agent, &t.Output, &t.CreatedAt); err != nil {
			return nil, err
		}
		d.Tasks = append(d.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	d.TaskCount = len(d.Tasks)

	return &d, nil
}
