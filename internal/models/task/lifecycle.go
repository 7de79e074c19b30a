package task

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("недопустимый переход статуса")

// переходы жизненного цикла; restore из любого статуса делается через Restore
var transitions = map[Status][]Status{
	StatusNotStarted: {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusNotStarted},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Start переводит задачу в in_progress и включает трекинг
func (t *Task) Start(now time.Time) error {
	switch t.Status {
	case StatusCompleted:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusInProgress)
	case StatusNotStarted:
		t.Status = StatusInProgress
	}
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	t.IsTracking = true
	return nil
}

// Complete замораживает накопленное время, трекинг должен быть уже остановлен
func (t *Task) Complete(now time.Time) error {
	if !t.Status.CanTransitionTo(StatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusCompleted)
	}
	t.Status = StatusCompleted
	t.IsTracking = false
	t.CompletedAt = &now
	return nil
}

// Restore возвращает задачу в начальную точку жизненного цикла
func (t *Task) Restore() {
	t.Status = StatusNotStarted
	t.IsTracking = false
	t.TotalTimeSpent = 0
	t.StartedAt = nil
	t.CompletedAt = nil
}
