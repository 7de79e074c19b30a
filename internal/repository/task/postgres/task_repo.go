package postgres

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/models/task"
	repo "matrixTasks/internal/repository"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = time.Millisecond * 100

const taskColumns = `uuid,
				user_id,
				title,
				description,
				priority,
				status,
				total_time_spent,
				is_tracking,
				created_at,
				started_at,
				completed_at,
				updated_at,
				version`

// порядок квадрантов матрицы
const quadrantOrder = `CASE priority
				WHEN 'urgent-important' THEN 0
				WHEN 'not-urgent-important' THEN 1
				WHEN 'urgent-not-important' THEN 2
				ELSE 3
			END`

type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	// сколько ждать базу при старте
	ConnectTimeout time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	// база в docker-compose поднимается дольше приложения
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	if poolCfg.ConnectTimeout > 0 {
		b.MaxElapsedTime = poolCfg.ConnectTimeout
	}
	err = backoff.RetryNotify(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("Repository: База недоступна, повтор", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func warnSlow(start time.Time, limit time.Duration) {
	if time.Since(start) > limit {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.UUID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Status,
		&t.TotalTimeSpent,
		&t.IsTracking,
		&t.CreatedAt,
		&t.StartedAt,
		&t.CompletedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	return t, err
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(uuid, user_id, title, description, priority, status, total_time_spent, is_tracking, created_at, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), 1)
				RETURNING created_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.UUID,
		taskToCreate.UserID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Priority,
		taskToCreate.Status,
		taskToCreate.TotalTimeSpent,
		taskToCreate.IsTracking,
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.Version)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnSlow(start, time.Millisecond*50)
	return nil
}

// Update с оптимистичной блокировкой по версии
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				priority = $3,
				status = $4,
				total_time_spent = $5,
				is_tracking = $6,
				started_at = $7,
				completed_at = $8,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $9 AND version = $10
			RETURNING updated_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Priority,
		taskToUpdate.Status,
		taskToUpdate.TotalTimeSpent,
		taskToUpdate.IsTracking,
		taskToUpdate.StartedAt,
		taskToUpdate.CompletedAt,
		taskToUpdate.UUID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if !s.exists(ctx, taskToUpdate.UUID) {
				return repo.ErrNotFound
			}
			logger.Warn("Repository: Конфликт версий при обновлении задачи",
				zap.String("task_id", taskToUpdate.UUID.String()),
				zap.Int("expected_version", taskToUpdate.Version))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	warnSlow(start, slowQuery)
	return nil
}

// SaveTracking пишет только поля трекинга, версия проверяется не здесь, а в Update
func (s *Storage) SaveTracking(ctx context.Context, id uuid.UUID, totalTimeSpent int64, isTracking bool) error {
	start := time.Now()

	query := `UPDATE tasks
			SET total_time_spent = $1,
				is_tracking = $2,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $3`

	tag, err := s.pool.Exec(ctx, query, totalTimeSpent, isTracking, id)
	if err != nil {
		logger.Error("Repository: Не удалось записать время трекинга", err,
			zap.String("task_id", id.String()),
			zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись трекинга: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnSlow(start, slowQuery)
	return nil
}

func (s *Storage) exists(ctx context.Context, id uuid.UUID) bool {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE uuid = $1)`, id).Scan(&found)
	return err == nil && found
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE uuid = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnSlow(start, slowQuery)
	return t, nil
}

// ListByUser - задачи пользователя по квадрантам, внутри квадранта по дате создания
func (s *Storage) ListByUser(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE user_id = $1
					AND ($2::text = '' OR status = $2::text)
					AND ($3::text = '' OR priority = $3::text)
				ORDER BY ` + quadrantOrder + `, created_at`

	rows, err := s.pool.Query(ctx, query, userID, string(filter.Status), string(filter.Priority))
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	tasks, err := collect(rows)
	if err != nil {
		return nil, err
	}

	warnSlow(start, slowQuery)
	return tasks, nil
}

// ListTracking - задачи с флагом is_tracking для воркера сверки
func (s *Storage) ListTracking(ctx context.Context, limit int) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE is_tracking
				LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	tasks, err := collect(rows)
	if err != nil {
		return nil, err
	}

	warnSlow(start, time.Millisecond*50+time.Millisecond*10*time.Duration(limit))
	return tasks, nil
}

func collect(rows pgx.Rows) ([]*task.Task, error) {
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

// Delete - полное удаление из БД
func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE uuid = $1`, id)
	if err != nil {
		logger.Error("Repository: Полное удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("полное удаление: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnSlow(start, slowQuery)
	return nil
}
