package service

import (
	"context"
	"fmt"
	"math"
	"matrixTasks/internal/models/task"
	"strings"
	"time"
)

const weekDays = 7

type QuadrantStat struct {
	Priority task.Priority `json:"priority"`
	Label    string        `json:"label"`
	Seconds  int64         `json:"seconds"`
	Tasks    int           `json:"tasks"`
	Display  string        `json:"display"`
}

type DayStat struct {
	Date           string `json:"date"`
	Weekday        string `json:"weekday"`
	TasksCompleted int    `json:"tasks_completed"`
	Seconds        int64  `json:"seconds"`
}

type Analytics struct {
	Quadrants               []QuadrantStat      `json:"quadrants"`
	StatusCounts            map[task.Status]int `json:"status_counts"`
	TotalSeconds            int64               `json:"total_seconds"`
	AverageCompletedSeconds int64               `json:"average_completed_seconds"`
	Weekly                  []DayStat           `json:"weekly"`
	TrackingNow             int                 `json:"tracking_now"`
}

// Progress - условная готовность задачи в процентах
func Progress(status task.Status) int {
	switch status {
	case task.StatusInProgress:
		return 50
	case task.StatusCompleted:
		return 100
	}
	return 0
}

// FormatDuration печатает секунды как "1h 5m", "5m 3s" или "42s"
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	parts := []string{}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// Analytics собирает сводку по задачам пользователя на текущий момент
func (s *TaskService) Analytics(ctx context.Context, userID string) (*Analytics, error) {
	tasks, err := s.ListTasks(ctx, userID, task.Filter{})
	if err != nil {
		return nil, err
	}
	return BuildAnalytics(tasks, s.tracker.Now()), nil
}

func BuildAnalytics(tasks []*task.Task, now time.Time) *Analytics {
	a := &Analytics{
		StatusCounts: map[task.Status]int{
			task.StatusNotStarted: 0,
			task.StatusInProgress: 0,
			task.StatusCompleted:  0,
		},
	}

	byQuadrant := make(map[task.Priority]*QuadrantStat, len(task.Priorities))
	for _, p := range task.Priorities {
		byQuadrant[p] = &QuadrantStat{Priority: p, Label: p.Label()}
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	a.Weekly = make([]DayStat, weekDays)
	for i := range a.Weekly {
		day := today.AddDate(0, 0, i-weekDays+1)
		a.Weekly[i] = DayStat{Date: day.Format(time.DateOnly), Weekday: day.Weekday().String()[:3]}
	}

	var completedSeconds int64
	for _, t := range tasks {
		a.StatusCounts[t.Status]++
		a.TotalSeconds += t.TotalTimeSpent
		if t.IsTracking {
			a.TrackingNow++
		}
		if q, ok := byQuadrant[t.Priority]; ok {
			q.Seconds += t.TotalTimeSpent
			q.Tasks++
		}

		if t.Status != task.StatusCompleted || t.CompletedAt == nil {
			continue
		}
		completedSeconds += t.TotalTimeSpent

		done := t.CompletedAt.In(now.Location())
		dy, dm, dd := done.Date()
		offset := int(math.Round(today.Sub(time.Date(dy, dm, dd, 0, 0, 0, 0, now.Location())).Hours() / 24))
		if offset >= 0 && offset < weekDays {
			day := &a.Weekly[weekDays-1-offset]
			day.TasksCompleted++
			day.Seconds += t.TotalTimeSpent
		}
	}

	if completed := a.StatusCounts[task.StatusCompleted]; completed > 0 {
		a.AverageCompletedSeconds = completedSeconds / int64(completed)
	}

	for _, p := range task.Priorities {
		q := byQuadrant[p]
		q.Display = FormatDuration(q.Seconds)
		a.Quadrants = append(a.Quadrants, *q)
	}
	return a
}
