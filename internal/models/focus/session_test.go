package focus_test

import (
	"matrixTasks/internal/models/focus"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_NextMode(t *testing.T) {
	settings := focus.DefaultSettings()

	tests := []struct {
		completed int
		want      focus.Mode
	}{
		{0, focus.ModeWork},
		{1, focus.ModeShortBreak},
		{3, focus.ModeShortBreak},
		{4, focus.ModeLongBreak},
		{8, focus.ModeLongBreak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, settings.NextMode(tt.completed), "completed=%d", tt.completed)
	}

	assert.Equal(t, 25*time.Minute, settings.Duration(focus.ModeWork))
	assert.Equal(t, 5*time.Minute, settings.Duration(focus.ModeShortBreak))
	assert.Equal(t, 15*time.Minute, settings.Duration(focus.ModeLongBreak))
}

func TestSession_PauseResume(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &focus.Session{StartedAt: start, PlannedSeconds: 1500, Mode: focus.ModeWork}

	assert.Equal(t, int64(60), s.Elapsed(start.Add(time.Minute)))

	require.NoError(t, s.Pause(start.Add(2*time.Minute)))
	assert.ErrorIs(t, s.Pause(start.Add(3*time.Minute)), focus.ErrAlreadyPaused)
	// на паузе время стоит
	assert.Equal(t, int64(120), s.Elapsed(start.Add(10*time.Minute)))

	require.NoError(t, s.Resume(start.Add(5*time.Minute)))
	assert.ErrorIs(t, s.Resume(start.Add(5*time.Minute)), focus.ErrNotPaused)
	assert.Equal(t, int64(180), s.PausedSeconds)
	assert.Equal(t, int64(420), s.Elapsed(start.Add(10*time.Minute)))
	assert.Equal(t, int64(1080), s.Remaining(start.Add(10*time.Minute)))
	assert.Zero(t, s.Remaining(start.Add(time.Hour)))
}

func TestSession_FinishWhilePaused(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &focus.Session{StartedAt: start, PlannedSeconds: 1500}

	require.NoError(t, s.Pause(start.Add(10*time.Minute)))
	s.Finish(start.Add(20*time.Minute), false)

	assert.False(t, s.Paused())
	assert.Equal(t, int64(600), s.FocusedSeconds)
	require.NotNil(t, s.EndedAt)
	assert.False(t, s.Completed)
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	sessions := []*focus.Session{
		{StartedAt: now.Add(-time.Hour), Mode: focus.ModeWork, Completed: true, FocusedSeconds: 1500},
		{StartedAt: now.Add(-2 * time.Hour), Mode: focus.ModeWork, Completed: true, FocusedSeconds: 1500},
		{StartedAt: yesterday, Mode: focus.ModeWork, Completed: false, FocusedSeconds: 600},
		{StartedAt: yesterday.Add(-time.Hour), Mode: focus.ModeWork, Completed: true, FocusedSeconds: 1500},
	}

	st := focus.ComputeStats(sessions, now, focus.DefaultSettings())
	assert.Equal(t, 4, st.TotalSessions)
	assert.Equal(t, 2, st.TodaySessions)
	assert.Equal(t, 3, st.CompletedSessions)
	assert.InDelta(t, 75.0, st.CompletionRate, 0.001)
	assert.Equal(t, int64(5100), st.TotalFocusSeconds)
	assert.Equal(t, int64(1275), st.AverageSessionSeconds)
	assert.Equal(t, focus.ModeShortBreak, st.NextMode)

	empty := focus.ComputeStats(nil, now, focus.DefaultSettings())
	assert.Zero(t, empty.CompletionRate)
	assert.Equal(t, focus.ModeWork, empty.NextMode)
}
