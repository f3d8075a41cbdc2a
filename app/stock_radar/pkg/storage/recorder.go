package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/logger"
	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

type taskSaver interface {
	SaveTaskOutput(ctx context.Context, runID uuid.UUID, out dm.TaskOutput) error
}

// Recorder 在每个任务完成后保存输出，保存失败只记录日志
type Recorder struct {
	store taskSaver
	runID uuid.UUID
}

// NewRecorder 创建记录器
func NewRecorder(s taskSaver, runID uuid.UUID) *Recorder {
	return &Recorder{store: s, runID: runID}
}

func (r *Recorder) TaskStarted(ctx context.Context, task, agent string) {
	logger.Log.Debugf("运行 %s: 任务 %s 开始", r.runID, task)
}

func (r *Recorder) TaskFinished(ctx context.Context, out dm.TaskOutput, err error) {
	if err != nil {
		return
	}
	if serr := r.store.SaveTaskOutput(ctx, r.runID, out); serr != nil {
		logger.Log.Errorf("保存任务输出失败 [%s]: %v", out.Name, serr)
	}
}
