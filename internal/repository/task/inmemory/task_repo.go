package inmemory

import (
	"context"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/models/task"
	repo "matrixTasks/internal/repository"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStorage хранит копии задач, наружу тоже отдаются копии
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	taskToCreate.CreatedAt = time.Now()
	taskToCreate.Version = 1

	s.storage[taskToCreate.UUID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.UUID)
	return nil
}

// Update с оптимистичной блокировкой по версии
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now()
	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version++
	s.storage[taskToUpdate.UUID] = taskToUpdate.Clone()

	return nil
}

// SaveTracking - частичное обновление полей трекинга без проверки версии
func (s *TaskStorage) SaveTracking(ctx context.Context, id uuid.UUID, totalTimeSpent int64, isTracking bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[id]
	if !ok {
		return repo.ErrNotFound
	}

	now := time.Now()
	existed.TotalTimeSpent = totalTimeSpent
	existed.IsTracking = isTracking
	existed.UpdatedAt = &now
	existed.Version++
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// ListByUser - задачи пользователя по квадрантам, внутри квадранта по дате создания
func (s *TaskStorage) ListByUser(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if t.UserID != userID || !filter.Match(t) {
			continue
		}
		res = append(res, t.Clone())
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Priority.Order() != res[j].Priority.Order() {
			return res[i].Priority.Order() < res[j].Priority.Order()
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// ListTracking - задачи с флагом is_tracking, нужны воркеру сверки
func (s *TaskStorage) ListTracking(ctx context.Context, limit int) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		if len(res) >= limit {
			break
		}
		t := s.storage[id]
		if t.IsTracking {
			res = append(res, t.Clone())
		}
	}
	return res, nil
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}

	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return nil
}
