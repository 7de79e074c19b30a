package sqlite_test

import (
	"context"
	"matrixTasks/internal/models/focus"
	"matrixTasks/internal/repository/focus/sqlite"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finished(userID string, started time.Time, completed bool) *focus.Session {
	ended := started.Add(25 * time.Minute)
	return &focus.Session{
		ID:             uuid.New(),
		UserID:         userID,
		TaskID:         uuid.New(),
		TaskTitle:      "Learn kung fu",
		Mode:           focus.ModeWork,
		StartedAt:      started,
		EndedAt:        &ended,
		PlannedSeconds: 1500,
		FocusedSeconds: 1500,
		Interruptions:  1,
		Note:           "there is no spoon",
		Completed:      completed,
	}
}

func TestStorage_SaveAndList(t *testing.T) {
	ctx := context.Background()
	storage, err := sqlite.Open(filepath.Join(t.TempDir(), "focus", "sessions.db"))
	require.NoError(t, err)
	defer storage.Close()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	older := finished("neo", base, true)
	newer := finished("neo", base.Add(time.Hour), false)
	foreign := finished("trinity", base, true)

	for _, s := range []*focus.Session{older, newer, foreign} {
		require.NoError(t, storage.Save(ctx, s))
	}

	sessions, err := storage.ListByUser(ctx, "neo", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
	assert.Equal(t, older.ID, sessions[1].ID)

	got := sessions[1]
	assert.Equal(t, older.TaskID, got.TaskID)
	assert.Equal(t, "Learn kung fu", got.TaskTitle)
	assert.Equal(t, focus.ModeWork, got.Mode)
	assert.True(t, got.StartedAt.Equal(base))
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(*older.EndedAt))
	assert.Equal(t, int64(1500), got.FocusedSeconds)
	assert.Equal(t, 1, got.Interruptions)
	assert.Equal(t, "there is no spoon", got.Note)
	assert.True(t, got.Completed)

	limited, err := storage.ListByUser(ctx, "neo", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStorage_SaveUnfinished(t *testing.T) {
	storage, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer storage.Close()

	s := finished("neo", time.Now(), false)
	s.EndedAt = nil
	assert.Error(t, storage.Save(context.Background(), s))
}
