package inmemory_test

import (
	"context"
	"fmt"
	"matrixTasks/internal/models/task"
	"matrixTasks/internal/repository"
	"matrixTasks/internal/repository/task/inmemory"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(userID, title string, priority task.Priority) *task.Task {
	return &task.Task{
		UUID:     uuid.New(),
		UserID:   userID,
		Title:    title,
		Priority: priority,
		Status:   task.StatusNotStarted,
	}
}

func TestTaskStorage_HealthCheck(t *testing.T) {
	storage := inmemory.NewTaskStorage()
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

// TestTaskStorage_Create проверяет заполнение служебных полей
func TestTaskStorage_Create(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("neo", "Follow the white rabbit", task.PriorityUrgentImportant)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	assert.False(t, taskToCreate.CreatedAt.IsZero())
	assert.Equal(t, 1, taskToCreate.Version)

	retrieved, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Follow the white rabbit", retrieved.Title)
}

func TestTaskStorage_GetByID_NotFound(t *testing.T) {
	storage := inmemory.NewTaskStorage()

	_, err := storage.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestTaskStorage_ReturnsCopies - изменения снаружи не протекают в хранилище
func TestTaskStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("neo", "Take the red pill", task.PriorityUrgentImportant)
	require.NoError(t, storage.Create(ctx, taskToCreate))
	taskToCreate.Title = "changed outside"

	got, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	got.Title = "changed again"

	again, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Take the red pill", again.Title)
}

func TestTaskStorage_Update(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("neo", "Original Title", task.PriorityNotUrgentImportant)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	taskToCreate.Title = "Updated Title"
	require.NoError(t, storage.Update(ctx, taskToCreate))
	assert.Equal(t, 2, taskToCreate.Version)
	assert.NotNil(t, taskToCreate.UpdatedAt)

	retrieved, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", retrieved.Title)
	assert.Equal(t, 2, retrieved.Version)
}

func TestTaskStorage_Update_VersionConflict(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("neo", "Original Title", task.PriorityNotUrgentImportant)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	stale := taskToCreate.Clone()
	require.NoError(t, storage.Update(ctx, taskToCreate))

	stale.Title = "stale write"
	assert.ErrorIs(t, storage.Update(ctx, stale), repository.ErrVersionConflict)

	missing := newTask("neo", "ghost", task.PriorityUrgentImportant)
	assert.ErrorIs(t, storage.Update(ctx, missing), repository.ErrNotFound)
}

func TestTaskStorage_SaveTracking(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("neo", "Dodge bullets", task.PriorityUrgentImportant)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	require.NoError(t, storage.SaveTracking(ctx, taskToCreate.UUID, 90, true))

	retrieved, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), retrieved.TotalTimeSpent)
	assert.True(t, retrieved.IsTracking)
	assert.Equal(t, 2, retrieved.Version)
	assert.Equal(t, "Dodge bullets", retrieved.Title)

	assert.ErrorIs(t, storage.SaveTracking(ctx, uuid.New(), 1, false), repository.ErrNotFound)
}

func TestTaskStorage_ListByUser(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	dontDo := newTask("neo", "Watch the news", task.PriorityNotUrgentNotImportant)
	doFirst := newTask("neo", "Escape the agents", task.PriorityUrgentImportant)
	schedule := newTask("neo", "Train with Morpheus", task.PriorityNotUrgentImportant)
	foreign := newTask("smith", "Replicate", task.PriorityUrgentImportant)

	for _, tk := range []*task.Task{dontDo, doFirst, schedule, foreign} {
		require.NoError(t, storage.Create(ctx, tk))
		time.Sleep(time.Millisecond)
	}

	tasks, err := storage.ListByUser(ctx, "neo", task.Filter{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, doFirst.UUID, tasks[0].UUID)
	assert.Equal(t, schedule.UUID, tasks[1].UUID)
	assert.Equal(t, dontDo.UUID, tasks[2].UUID)

	filtered, err := storage.ListByUser(ctx, "neo", task.Filter{Priority: task.PriorityNotUrgentImportant})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, schedule.UUID, filtered[0].UUID)

	none, err := storage.ListByUser(ctx, "trinity", task.Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTaskStorage_ListTracking(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	for i := 0; i < 5; i++ {
		tk := newTask("neo", fmt.Sprintf("Task %d", i), task.PriorityUrgentImportant)
		require.NoError(t, storage.Create(ctx, tk))
		if i%2 == 0 {
			require.NoError(t, storage.SaveTracking(ctx, tk.UUID, 0, true))
		}
	}

	tracking, err := storage.ListTracking(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, tracking, 3)

	limited, err := storage.ListTracking(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestTaskStorage_Delete(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("neo", "Temporary", task.PriorityUrgentNotImportant)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	require.NoError(t, storage.Delete(ctx, taskToCreate.UUID))

	_, err := storage.GetByID(ctx, taskToCreate.UUID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, storage.Delete(ctx, taskToCreate.UUID), repository.ErrNotFound)

	tasks, err := storage.ListByUser(ctx, "neo", task.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestTaskStorage_ConcurrentAccess тестирует конкурентный доступ
func TestTaskStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	var wg sync.WaitGroup
	numGoroutines := 10
	tasksPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < tasksPerGoroutine; j++ {
				tk := newTask("neo", fmt.Sprintf("Task %d-%d", goroutineID, j), task.PriorityUrgentImportant)
				_ = storage.Create(ctx, tk)
				_ = storage.SaveTracking(ctx, tk.UUID, int64(j), false)
			}
		}(i)
	}
	wg.Wait()

	tasks, err := storage.ListByUser(ctx, "neo", task.Filter{})
	require.NoError(t, err)
	assert.Len(t, tasks, numGoroutines*tasksPerGoroutine)
}
