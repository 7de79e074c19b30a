package worker

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/metrics"
	"matrixTasks/internal/models/task"
	repo "matrixTasks/internal/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskStore interface {
	ListTracking(context.Context, int) ([]*task.Task, error)
	Update(context.Context, *task.Task) error
}

type Registry interface {
	IsTracking(uuid.UUID) bool
}

// TrackingWorker снимает is_tracking с задач, таймер которых в этом процессе не идёт
// (падение или перезапуск без финальной записи)
type TrackingWorker struct {
	repo      TaskStore
	registry  Registry
	interval  time.Duration
	batchSize int
}

func NewTrackingWorker(repo TaskStore, registry Registry, interval *time.Duration, batchSize *int) *TrackingWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = 5 * time.Minute
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil || *batchSize <= 0 {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}
	return &TrackingWorker{
		repo:      repo,
		registry:  registry,
		interval:  intervalToSet,
		batchSize: batchToSet,
	}
}

// Start сверяет сразу и дальше по тикеру, пока жив ctx
func (w *TrackingWorker) Start(ctx context.Context) {
	w.Check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Debug("Worker: Фоновая сверка трекинга", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая сверка останавливается")
			return
		}
	}
}

// Check возвращает число исправленных задач
func (w *TrackingWorker) Check(ctx context.Context) int {
	start := time.Now()

	tasks, err := w.repo.ListTracking(ctx, w.batchSize)
	if err != nil {
		logger.Warn("Worker: Ошибка получения задач", zap.Error(err))
		return 0
	}

	fixed := 0
	for _, t := range tasks {
		if w.registry.IsTracking(t.UUID) {
			continue
		}
		if err := w.release(ctx, t); err != nil {
			if errors.Is(err, repo.ErrVersionConflict) || errors.Is(err, repo.ErrNotFound) {
				// задачу успели остановить или удалить, трогать не нужно
				continue
			}
			logger.Warn("Worker: Ошибка обновления задачи", zap.Error(err), zap.String("task_id", t.UUID.String()))
			continue
		}
		fixed++
	}

	metrics.ReconciledTasks.Add(float64(fixed))
	logger.Info(
		"Worker: Завершение сверки трекинга",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("fixed", fixed),
	)
	return fixed
}

// release пишет через Update, чтобы конфликт версии защитил свежую финальную запись
func (w *TrackingWorker) release(ctx context.Context, t *task.Task) error {
	t.IsTracking = false
	if err := w.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("снятие флага трекинга: %w", err)
	}
	return nil
}
