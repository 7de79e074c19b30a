package service_test

import (
	"matrixTasks/internal/models/task"
	"matrixTasks/internal/service"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{42, "42s"},
		{60, "1m"},
		{303, "5m 3s"},
		{3600, "1h"},
		{3900, "1h 5m"},
		{3905, "1h 5m 5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.FormatDuration(tt.seconds))
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, service.Progress(task.StatusNotStarted))
	assert.Equal(t, 50, service.Progress(task.StatusInProgress))
	assert.Equal(t, 100, service.Progress(task.StatusCompleted))
}

func TestBuildAnalytics(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	today := now.Add(-2 * time.Hour)
	threeDaysAgo := now.AddDate(0, 0, -3)
	lastMonth := now.AddDate(0, -1, 0)

	tasks := []*task.Task{
		{UUID: uuid.New(), Priority: task.PriorityUrgentImportant, Status: task.StatusCompleted, TotalTimeSpent: 600, CompletedAt: &today},
		{UUID: uuid.New(), Priority: task.PriorityUrgentImportant, Status: task.StatusCompleted, TotalTimeSpent: 1200, CompletedAt: &threeDaysAgo},
		{UUID: uuid.New(), Priority: task.PriorityNotUrgentImportant, Status: task.StatusCompleted, TotalTimeSpent: 300, CompletedAt: &lastMonth},
		{UUID: uuid.New(), Priority: task.PriorityNotUrgentImportant, Status: task.StatusInProgress, TotalTimeSpent: 3900, IsTracking: true},
		{UUID: uuid.New(), Priority: task.PriorityNotUrgentNotImportant, Status: task.StatusNotStarted},
	}

	a := service.BuildAnalytics(tasks, now)

	assert.Equal(t, 3, a.StatusCounts[task.StatusCompleted])
	assert.Equal(t, 1, a.StatusCounts[task.StatusInProgress])
	assert.Equal(t, 1, a.StatusCounts[task.StatusNotStarted])
	assert.Equal(t, int64(6000), a.TotalSeconds)
	assert.Equal(t, int64(700), a.AverageCompletedSeconds)
	assert.Equal(t, 1, a.TrackingNow)

	require.Len(t, a.Quadrants, 4)
	assert.Equal(t, task.PriorityUrgentImportant, a.Quadrants[0].Priority)
	assert.Equal(t, "Do First", a.Quadrants[0].Label)
	assert.Equal(t, int64(1800), a.Quadrants[0].Seconds)
	assert.Equal(t, "30m", a.Quadrants[0].Display)
	assert.Equal(t, int64(4200), a.Quadrants[1].Seconds)
	assert.Equal(t, "1h 10m", a.Quadrants[1].Display)
	assert.Zero(t, a.Quadrants[2].Tasks)

	require.Len(t, a.Weekly, 7)
	assert.Equal(t, "2026-03-10", a.Weekly[6].Date)
	assert.Equal(t, "Tue", a.Weekly[6].Weekday)
	assert.Equal(t, 1, a.Weekly[6].TasksCompleted)
	assert.Equal(t, int64(600), a.Weekly[6].Seconds)
	assert.Equal(t, "2026-03-07", a.Weekly[3].Date)
	assert.Equal(t, 1, a.Weekly[3].TasksCompleted)
	assert.Equal(t, int64(1200), a.Weekly[3].Seconds)
	assert.Equal(t, "2026-03-04", a.Weekly[0].Date)
	assert.Zero(t, a.Weekly[0].TasksCompleted)
}
