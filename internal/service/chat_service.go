package service

import (
	"context"
	"errors"
	"matrixTasks/internal/chat"
	"matrixTasks/internal/metrics"
	"matrixTasks/internal/models/task"
)

type Advisor interface {
	Reply(context.Context, string, chat.Snapshot) (string, error)
}

// ChatService подмешивает к вопросу сводку по задачам пользователя
type ChatService struct {
	tasks   *TaskService
	advisor Advisor
}

// NewChatService: advisor == nil значит чат не настроен
func NewChatService(tasks *TaskService, advisor Advisor) *ChatService {
	return &ChatService{tasks: tasks, advisor: advisor}
}

func (s *ChatService) Ask(ctx context.Context, userID, message string) (string, error) {
	if s.advisor == nil {
		metrics.ChatRequests.WithLabelValues("disabled").Inc()
		return "", NewBusinessError(CodeChatUnavailable, "Морфеус сейчас недоступен")
	}

	summary, err := s.tasks.Analytics(ctx, userID)
	if err != nil {
		return "", err
	}

	total := 0
	for _, n := range summary.StatusCounts {
		total += n
	}
	snap := chat.Snapshot{
		Now:          s.tasks.tracker.Now(),
		Tasks:        total,
		InProgress:   summary.StatusCounts[task.StatusInProgress],
		Completed:    summary.StatusCounts[task.StatusCompleted],
		Tracking:     summary.TrackingNow,
		TotalSeconds: summary.TotalSeconds,
	}
	// последний день недельной сводки - сегодня
	if n := len(summary.Weekly); n > 0 {
		snap.CompletedToday = summary.Weekly[n-1].TasksCompleted
		snap.SecondsToday = summary.Weekly[n-1].Seconds
	}

	reply, err := s.advisor.Reply(ctx, message, snap)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return "", NewValidationError("message", "обязательное поле")
		}
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return "", NewBusinessError(CodeChatUnavailable, "Морфеус не ответил").Wrap(err)
	}

	metrics.ChatRequests.WithLabelValues("ok").Inc()
	return reply, nil
}
