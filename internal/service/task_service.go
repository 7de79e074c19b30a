package service

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/models/task"
	rep "matrixTasks/internal/repository"
	"matrixTasks/internal/tracker"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

const clearConcurrency = 8

type TaskService struct {
	repo    TaskRepository
	tracker Tracker
}

func NewTaskService(repo TaskRepository, tracker Tracker) *TaskService {
	return &TaskService{
		repo:    repo,
		tracker: tracker,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// translate переводит ошибки нижних слоёв в бизнес-ошибки
func translate(err error, id uuid.UUID) error {
	var fieldErr *task.FieldError
	var busErr *BusinessError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &busErr):
		return busErr
	case errors.Is(err, rep.ErrNotFound):
		return NewNotFound(ResourceTask, id.String()).Wrap(err)
	case errors.Is(err, rep.ErrVersionConflict):
		return NewBusinessError(CodeVersionConflict, "Задача изменена параллельно, повторите запрос",
			ToDetail("id", id.String())).Wrap(err)
	case errors.Is(err, task.ErrInvalidTransition):
		return NewBusinessError(CodeInvalidTransition, "Недопустимая смена статуса",
			ToDetail("id", id.String())).Wrap(err)
	case errors.Is(err, tracker.ErrNotTracking):
		return NewBusinessError(CodeNotTracking, "Трекинг задачи не запущен",
			ToDetail("id", id.String())).Wrap(err)
	case errors.As(err, &fieldErr):
		return NewValidationError(fieldErr.Field, fieldErr.Reason).Wrap(err)
	}
	return err
}

// owned достаёт задачу и проверяет владельца; чужая задача выглядит как несуществующая
func (s *TaskService) owned(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		}
		return nil, translate(err, id)
	}
	if t.UserID != userID {
		logger.Warn("Service: Доступ к чужой задаче",
			zap.String("target_id", id.String()),
			zap.String("user_id", userID))
		return nil, NewNotFound(ResourceTask, id.String())
	}
	return t, nil
}

// withLiveTime подставляет текущее время трекинга вместо последнего записанного
func (s *TaskService) withLiveTime(ctx context.Context, t *task.Task) *task.Task {
	if !s.tracker.IsTracking(t.UUID) {
		return t
	}
	total, err := s.tracker.TrackedTime(ctx, t.UUID)
	if err == nil && total > t.TotalTimeSpent {
		t.TotalTimeSpent = total
	}
	return t
}

func (s *TaskService) CreateTask(ctx context.Context, userID, title, description string, priority task.Priority) (*task.Task, error) {
	newTask := &task.Task{
		UUID:        uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Priority:    priority,
		Status:      task.StatusNotStarted,
	}

	if err := task.Validate(newTask); err != nil {
		return nil, translate(err, newTask.UUID)
	}

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.UUID.String()),
		zap.String("priority", string(priority)))
	return newTask, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.withLiveTime(ctx, t), nil
}

// ListTasks - задачи пользователя по квадрантам
func (s *TaskService) ListTasks(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, NewValidationError("status", "неизвестный статус")
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, NewValidationError("priority", "неизвестный квадрант")
	}

	tasks, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	for _, t := range tasks {
		s.withLiveTime(ctx, t)
	}
	return tasks, nil
}

// UpdateTask применяет набор изменений к копии задачи, проверяет и сохраняет.
// expectedVersion = 0 отключает проверку версии на стороне клиента.
func (s *TaskService) UpdateTask(ctx context.Context, userID string, id uuid.UUID, expectedVersion int, changes ...task.Change) (*task.Task, error) {
	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && expectedVersion != current.Version {
		return nil, translate(rep.ErrVersionConflict, id)
	}
	if len(changes) == 0 {
		return s.withLiveTime(ctx, current), nil
	}

	updated, err := task.ApplyChanges(current, changes...)
	if err != nil {
		return nil, translate(err, id)
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, translate(err, id)
	}

	logger.Info("Service: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Int("changes", len(changes)))
	return s.withLiveTime(ctx, updated), nil
}

// CheckStatus проверяет смену статуса до записи правок полей, чтобы PATCH с недопустимым
// статусом не сохранялся частично. Сама смена делается через SetStatus.
func (s *TaskService) CheckStatus(ctx context.Context, userID string, id uuid.UUID, status task.Status) error {
	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	switch status {
	case task.StatusNotStarted:
		return nil
	case task.StatusInProgress:
		if current.Status == task.StatusCompleted {
			return NewBusinessError(CodeTaskCompleted, "Завершённую задачу нельзя трекать, сначала восстановите её",
				ToDetail("id", id.String()))
		}
		return nil
	case task.StatusCompleted:
		if current.Status == task.StatusCompleted || current.Status.CanTransitionTo(status) {
			return nil
		}
		return translate(fmt.Errorf("%w: %s -> %s", task.ErrInvalidTransition, current.Status, status), id)
	}
	return NewValidationError("status", "неизвестный статус")
}

// SetStatus переводит задачу в статус через действия трекера
func (s *TaskService) SetStatus(ctx context.Context, userID string, id uuid.UUID, status task.Status) (*task.Task, error) {
	switch status {
	case task.StatusInProgress:
		return s.StartTracking(ctx, userID, id)
	case task.StatusCompleted:
		return s.CompleteTask(ctx, userID, id)
	case task.StatusNotStarted:
		return s.RestoreTask(ctx, userID, id)
	}
	return nil, NewValidationError("status", "неизвестный статус")
}

func (s *TaskService) DeleteTask(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if _, err := s.tracker.Stop(ctx, id); err != nil && !errors.Is(err, tracker.ErrNotTracking) {
		logger.Warn("Service: Не удалось остановить трекинг перед удалением", zap.Error(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err, id)
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return nil
}

// ClearCompleted удаляет все завершённые задачи пользователя, возвращает сколько удалено
func (s *TaskService) ClearCompleted(ctx context.Context, userID string) (int, error) {
	completed, err := s.repo.ListByUser(ctx, userID, task.Filter{Status: task.StatusCompleted})
	if err != nil {
		return 0, fmt.Errorf("получение завершённых задач: %w", err)
	}

	var deleted atomic.Int64
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(clearConcurrency)
	for _, t := range completed {
		p.Go(func(ctx context.Context) error {
			if err := s.repo.Delete(ctx, t.UUID); err != nil {
				if errors.Is(err, rep.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("удаление %s: %w", t.UUID, err)
			}
			deleted.Add(1)
			return nil
		})
	}
	err = p.Wait()

	logger.Info("Service: Завершённые задачи очищены",
		zap.String("user_id", userID),
		zap.Int64("deleted", deleted.Load()))
	return int(deleted.Load()), err
}

func (s *TaskService) StartTracking(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == task.StatusCompleted {
		return nil, NewBusinessError(CodeTaskCompleted, "Завершённую задачу нельзя трекать, сначала восстановите её",
			ToDetail("id", id.String()))
	}

	started, err := s.tracker.Start(ctx, t)
	if err != nil {
		return nil, translate(err, id)
	}
	if !started {
		return nil, NewBusinessError(CodeAlreadyTracking, "Трекинг задачи уже запущен",
			ToDetail("id", id.String()))
	}
	return t, nil
}

func (s *TaskService) StopTracking(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	if _, err := s.tracker.Stop(ctx, id); err != nil {
		return nil, translate(err, id)
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	return t, nil
}

func (s *TaskService) CompleteTask(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	t, err := s.tracker.Complete(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	return t, nil
}

func (s *TaskService) RestoreTask(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	if err := s.tracker.Restore(ctx, id); err != nil {
		return nil, translate(err, id)
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	return t, nil
}

func (s *TaskService) TrackedTime(ctx context.Context, userID string, id uuid.UUID) (int64, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return 0, err
	}

	total, err := s.tracker.TrackedTime(ctx, id)
	if err != nil {
		return 0, translate(err, id)
	}
	return total, nil
}

func (s *TaskService) IsTracking(id uuid.UUID) bool {
	return s.tracker.IsTracking(id)
}
