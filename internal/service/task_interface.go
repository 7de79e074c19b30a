package service

import (
	"context"
	"matrixTasks/internal/models/focus"
	"matrixTasks/internal/models/task"
	"time"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	SaveTracking(context.Context, uuid.UUID, int64, bool) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	ListByUser(context.Context, string, task.Filter) ([]*task.Task, error)
	ListTracking(context.Context, int) ([]*task.Task, error)
	Delete(context.Context, uuid.UUID) error
}

// Tracker - реестр таймеров задач
type Tracker interface {
	Now() time.Time
	Start(context.Context, *task.Task) (bool, error)
	Stop(context.Context, uuid.UUID) (int64, error)
	TrackedTime(context.Context, uuid.UUID) (int64, error)
	IsTracking(uuid.UUID) bool
	Complete(context.Context, uuid.UUID) (*task.Task, error)
	Restore(context.Context, uuid.UUID) error
}

type SessionRepository interface {
	Save(context.Context, *focus.Session) error
	ListByUser(context.Context, string, int) ([]*focus.Session, error)
}
