package dto

import (
	"matrixTasks/internal/models/task"
	"matrixTasks/internal/service"
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    task.Priority `json:"priority"`
}

// UpdateTaskRequest - частичное обновление, отсутствующие поля не меняются
type UpdateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	Version     int            `json:"version,omitempty"`
}

func (r UpdateTaskRequest) Changes() []task.Change {
	var changes []task.Change
	if r.Title != nil {
		changes = append(changes, task.WithTitle(*r.Title))
	}
	if r.Description != nil {
		changes = append(changes, task.WithDescription(*r.Description))
	}
	if r.Priority != nil {
		changes = append(changes, task.WithPriority(*r.Priority))
	}
	return changes
}

type TaskResponse struct {
	UUID           uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Priority       task.Priority `json:"priority"`
	Quadrant       string        `json:"quadrant"`
	Status         task.Status   `json:"status"`
	Progress       int           `json:"progress"`
	TotalTimeSpent int64         `json:"total_time_spent"`
	TimeDisplay    string        `json:"time_display"`
	IsTracking     bool          `json:"is_tracking"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty"`
	Version        int           `json:"version"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		UUID:           t.UUID,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       t.Priority,
		Quadrant:       t.Priority.Label(),
		Status:         t.Status,
		Progress:       service.Progress(t.Status),
		TotalTimeSpent: t.TotalTimeSpent,
		TimeDisplay:    service.FormatDuration(t.TotalTimeSpent),
		IsTracking:     t.IsTracking,
		CreatedAt:      t.CreatedAt,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
		UpdatedAt:      t.UpdatedAt,
		Version:        t.Version,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type TimeResponse struct {
	UUID       uuid.UUID `json:"id"`
	Seconds    int64     `json:"seconds"`
	Display    string    `json:"display"`
	IsTracking bool      `json:"is_tracking"`
}

type StartSessionRequest struct {
	TaskID uuid.UUID `json:"task_id"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type EndSessionRequest struct {
	Completed bool `json:"completed"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}
