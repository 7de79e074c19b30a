package postgres_test

import (
	"context"
	"fmt"
	"matrixTasks/internal/models/task"
	"matrixTasks/internal/repository"
	"matrixTasks/internal/repository/task/postgres"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	connString string
	ctx        context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), postgres.Migrate(s.connString))

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.PoolConfig{MaxConns: 4, ConnectTimeout: 20 * time.Second})
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest очищает таблицу перед каждым тестом
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	if err != nil {
		s.T().Logf("Не удалось подключиться для очистки: %v", err)
		return
	}
	defer conn.Close(s.ctx)

	if _, err := conn.Exec(s.ctx, "DELETE FROM tasks"); err != nil {
		s.T().Logf("Не удалось очистить таблицу: %v", err)
	}
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) newTask(userID, title string, priority task.Priority) *task.Task {
	tk := &task.Task{
		UUID:     uuid.New(),
		UserID:   userID,
		Title:    title,
		Priority: priority,
		Status:   task.StatusNotStarted,
	}
	require.NoError(s.T(), s.storage.Create(s.ctx, tk))
	return tk
}

func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestStorage_Create() {
	tk := s.newTask("neo", "Follow the white rabbit", task.PriorityUrgentImportant)
	assert.False(s.T(), tk.CreatedAt.IsZero())
	assert.Equal(s.T(), 1, tk.Version)

	retrieved, err := s.storage.GetByID(s.ctx, tk.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Follow the white rabbit", retrieved.Title)
	assert.Equal(s.T(), task.PriorityUrgentImportant, retrieved.Priority)
	assert.Equal(s.T(), task.StatusNotStarted, retrieved.Status)
	assert.Nil(s.T(), retrieved.StartedAt)
}

func (s *PostgresTestSuite) TestStorage_GetByID_NotFound() {
	_, err := s.storage.GetByID(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_Update() {
	tk := s.newTask("neo", "Original Title", task.PriorityNotUrgentImportant)

	now := time.Now()
	tk.Title = "Updated Title"
	tk.Status = task.StatusInProgress
	tk.StartedAt = &now
	tk.IsTracking = true

	require.NoError(s.T(), s.storage.Update(s.ctx, tk))
	assert.Equal(s.T(), 2, tk.Version)

	retrieved, err := s.storage.GetByID(s.ctx, tk.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Updated Title", retrieved.Title)
	assert.Equal(s.T(), task.StatusInProgress, retrieved.Status)
	assert.True(s.T(), retrieved.IsTracking)
	assert.NotNil(s.T(), retrieved.StartedAt)
	assert.NotNil(s.T(), retrieved.UpdatedAt)
	assert.Equal(s.T(), 2, retrieved.Version)
}

func (s *PostgresTestSuite) TestStorage_Update_VersionConflict() {
	tk := s.newTask("neo", "Test Task", task.PriorityUrgentImportant)

	task1, err := s.storage.GetByID(s.ctx, tk.UUID)
	require.NoError(s.T(), err)
	task2, err := s.storage.GetByID(s.ctx, tk.UUID)
	require.NoError(s.T(), err)

	task1.Title = "Updated by task1"
	require.NoError(s.T(), s.storage.Update(s.ctx, task1))

	task2.Title = "Updated by task2"
	assert.ErrorIs(s.T(), s.storage.Update(s.ctx, task2), repository.ErrVersionConflict)

	ghost := &task.Task{UUID: uuid.New(), Title: "ghost", Priority: task.PriorityUrgentImportant, Status: task.StatusNotStarted, Version: 1}
	assert.ErrorIs(s.T(), s.storage.Update(s.ctx, ghost), repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_TrackingConstraint() {
	tk := s.newTask("neo", "Constraint", task.PriorityUrgentImportant)

	// is_tracking у не начатой задачи запрещён на уровне схемы
	err := s.storage.SaveTracking(s.ctx, tk.UUID, 10, true)
	assert.Error(s.T(), err)
}

func (s *PostgresTestSuite) TestStorage_SaveTracking() {
	tk := s.newTask("neo", "Dodge bullets", task.PriorityUrgentImportant)
	now := time.Now()
	tk.Status = task.StatusInProgress
	tk.StartedAt = &now
	tk.IsTracking = true
	require.NoError(s.T(), s.storage.Update(s.ctx, tk))

	require.NoError(s.T(), s.storage.SaveTracking(s.ctx, tk.UUID, 65, true))

	retrieved, err := s.storage.GetByID(s.ctx, tk.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(65), retrieved.TotalTimeSpent)
	assert.True(s.T(), retrieved.IsTracking)
	assert.Equal(s.T(), 3, retrieved.Version)

	require.NoError(s.T(), s.storage.SaveTracking(s.ctx, tk.UUID, 70, false))
	retrieved, err = s.storage.GetByID(s.ctx, tk.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(70), retrieved.TotalTimeSpent)
	assert.False(s.T(), retrieved.IsTracking)

	assert.ErrorIs(s.T(), s.storage.SaveTracking(s.ctx, uuid.New(), 1, false), repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_ListByUser() {
	dontDo := s.newTask("neo", "Watch the news", task.PriorityNotUrgentNotImportant)
	doFirst := s.newTask("neo", "Escape the agents", task.PriorityUrgentImportant)
	schedule := s.newTask("neo", "Train with Morpheus", task.PriorityNotUrgentImportant)
	s.newTask("smith", "Replicate", task.PriorityUrgentImportant)

	tasks, err := s.storage.ListByUser(s.ctx, "neo", task.Filter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 3)
	assert.Equal(s.T(), doFirst.UUID, tasks[0].UUID)
	assert.Equal(s.T(), schedule.UUID, tasks[1].UUID)
	assert.Equal(s.T(), dontDo.UUID, tasks[2].UUID)

	filtered, err := s.storage.ListByUser(s.ctx, "neo", task.Filter{Status: task.StatusNotStarted, Priority: task.PriorityUrgentImportant})
	require.NoError(s.T(), err)
	require.Len(s.T(), filtered, 1)
	assert.Equal(s.T(), doFirst.UUID, filtered[0].UUID)
}

func (s *PostgresTestSuite) TestStorage_ListTracking() {
	for i := 0; i < 3; i++ {
		tk := s.newTask("neo", fmt.Sprintf("Task %d", i), task.PriorityUrgentImportant)
		if i == 0 {
			continue
		}
		now := time.Now()
		tk.Status = task.StatusInProgress
		tk.StartedAt = &now
		tk.IsTracking = true
		require.NoError(s.T(), s.storage.Update(s.ctx, tk))
	}

	tracking, err := s.storage.ListTracking(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Len(s.T(), tracking, 2)
}

func (s *PostgresTestSuite) TestStorage_Delete() {
	tk := s.newTask("neo", "Task to purge", task.PriorityUrgentNotImportant)

	require.NoError(s.T(), s.storage.Delete(s.ctx, tk.UUID))

	_, err := s.storage.GetByID(s.ctx, tk.UUID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
	assert.ErrorIs(s.T(), s.storage.Delete(s.ctx, tk.UUID), repository.ErrNotFound)
}
