package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID           uuid.UUID  `json:"id" db:"uuid" validate:"required"`
	UserID         string     `json:"user_id" db:"user_id" validate:"required,max=128"`
	Title          string     `json:"title" db:"title" validate:"required,min=3,max=255"`
	Description    string     `json:"description" db:"description" validate:"max=2000"`
	Priority       Priority   `json:"priority" db:"priority" validate:"required,quadrant"`
	Status         Status     `json:"status" db:"status" validate:"required,oneof=not_started in_progress completed"`
	TotalTimeSpent int64      `json:"total_time_spent" db:"total_time_spent" validate:"gte=0"` // секунды
	IsTracking     bool       `json:"is_tracking" db:"is_tracking"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at,omitempty"`
	Version        int        `json:"version" db:"version"`
}

type Status string
type Priority string

const StatusNotStarted Status = "not_started"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"

const PriorityUrgentImportant Priority = "urgent-important"
const PriorityNotUrgentImportant Priority = "not-urgent-important"
const PriorityUrgentNotImportant Priority = "urgent-not-important"
const PriorityNotUrgentNotImportant Priority = "not-urgent-not-important"

// Priorities в порядке квадрантов матрицы Эйзенхауэра
var Priorities = []Priority{
	PriorityUrgentImportant,
	PriorityNotUrgentImportant,
	PriorityUrgentNotImportant,
	PriorityNotUrgentNotImportant,
}

func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Order - позиция квадранта, неизвестный приоритет уходит в конец
func (p Priority) Order() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return len(Priorities)
}

func (p Priority) Label() string {
	switch p {
	case PriorityUrgentImportant:
		return "Do First"
	case PriorityNotUrgentImportant:
		return "Schedule"
	case PriorityUrgentNotImportant:
		return "Delegate"
	case PriorityNotUrgentNotImportant:
		return "Don't Do"
	}
	return ""
}

func (s Status) Valid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusCompleted
}

// Filter - выборка задач пользователя, пустые поля не фильтруют
type Filter struct {
	Status   Status
	Priority Priority
}

func (f Filter) Match(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.UpdatedAt = cloneTime(t.UpdatedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
