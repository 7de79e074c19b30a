package handlers

import (
	"context"
	"matrixTasks/internal/models/focus"
	"matrixTasks/internal/models/task"
	"matrixTasks/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	CreateTask(ctx context.Context, userID, title, description string, priority task.Priority) (*task.Task, error)
	GetTask(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error)
	ListTasks(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error)
	UpdateTask(ctx context.Context, userID string, id uuid.UUID, expectedVersion int, changes ...task.Change) (*task.Task, error)
	CheckStatus(ctx context.Context, userID string, id uuid.UUID, status task.Status) error
	SetStatus(ctx context.Context, userID string, id uuid.UUID, status task.Status) (*task.Task, error)
	DeleteTask(ctx context.Context, userID string, id uuid.UUID) error
	ClearCompleted(ctx context.Context, userID string) (int, error)
	StartTracking(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error)
	StopTracking(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error)
	CompleteTask(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error)
	RestoreTask(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error)
	TrackedTime(ctx context.Context, userID string, id uuid.UUID) (int64, error)
	IsTracking(id uuid.UUID) bool
	Analytics(ctx context.Context, userID string) (*service.Analytics, error)
}

type FocusService interface {
	Settings() focus.Settings
	StartSession(ctx context.Context, userID string, taskID uuid.UUID) (*service.SessionView, error)
	CurrentSession(userID string) (*service.SessionView, error)
	PauseSession(ctx context.Context, userID string) (*service.SessionView, error)
	ResumeSession(ctx context.Context, userID string) (*service.SessionView, error)
	RecordInterruption(userID string) (*service.SessionView, error)
	AddNote(userID, note string) (*service.SessionView, error)
	EndSession(ctx context.Context, userID string, completed bool) (*focus.Session, error)
	History(ctx context.Context, userID string, limit int) ([]*focus.Session, error)
	Stats(ctx context.Context, userID string) (focus.Stats, error)
}

type ChatService interface {
	Ask(ctx context.Context, userID, message string) (string, error)
}

var _ TaskService = (*service.TaskService)(nil)
var _ FocusService = (*service.FocusService)(nil)
var _ ChatService = (*service.ChatService)(nil)
