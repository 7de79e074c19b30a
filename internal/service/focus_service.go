package service

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/metrics"
	"matrixTasks/internal/models/focus"
	"strconv"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNoteLength = 500
const DefaultHistoryLimit = 20

// SessionView - активная сессия с вычисленными на момент запроса полями
type SessionView struct {
	*focus.Session
	ElapsedSeconds   int64 `json:"elapsed_seconds"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Paused           bool  `json:"paused"`
}

// FocusService ведёт помодоро-сессии: одна активная сессия на пользователя,
// пока сессия идёт и не на паузе, трекается её задача
type FocusService struct {
	tasks    *TaskService
	repo     SessionRepository
	clock    clock.Clock
	settings focus.Settings

	mu     sync.Mutex
	active map[string]*focus.Session
}

func NewFocusService(tasks *TaskService, repo SessionRepository, settings focus.Settings, clk clock.Clock) *FocusService {
	if clk == nil {
		clk = clock.New()
	}
	return &FocusService{
		tasks:    tasks,
		repo:     repo,
		clock:    clk,
		settings: settings,
		active:   make(map[string]*focus.Session),
	}
}

func (s *FocusService) Settings() focus.Settings {
	return s.settings
}

func (s *FocusService) view(session *focus.Session) *SessionView {
	now := s.clock.Now()
	return &SessionView{
		Session:          session.Clone(),
		ElapsedSeconds:   session.Elapsed(now),
		RemainingSeconds: session.Remaining(now),
		Paused:           session.Paused(),
	}
}

func isCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}

func noSession(userID string) *BusinessError {
	return NewBusinessError(CodeNoSession, "Нет активной фокус-сессии", ToDetail("user_id", userID))
}

func (s *FocusService) StartSession(ctx context.Context, userID string, taskID uuid.UUID) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.active[userID]; ok {
		return nil, NewBusinessError(CodeSessionActive, "Фокус-сессия уже идёт",
			ToDetail("session_id", current.ID.String()),
			ToDetail("task_id", current.TaskID.String()))
	}

	t, err := s.tasks.StartTracking(ctx, userID, taskID)
	if err != nil {
		if !isCode(err, CodeAlreadyTracking) {
			return nil, err
		}
		if t, err = s.tasks.GetTask(ctx, userID, taskID); err != nil {
			return nil, err
		}
	}

	session := &focus.Session{
		ID:             uuid.New(),
		UserID:         userID,
		TaskID:         taskID,
		TaskTitle:      t.Title,
		Mode:           focus.ModeWork,
		StartedAt:      s.clock.Now(),
		PlannedSeconds: int64(s.settings.Duration(focus.ModeWork).Seconds()),
	}
	s.active[userID] = session

	logger.Info("Focus: Сессия начата",
		zap.String("session_id", session.ID.String()),
		zap.String("task_id", taskID.String()),
		zap.Int64("planned_seconds", session.PlannedSeconds))
	return s.view(session), nil
}

func (s *FocusService) CurrentSession(userID string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.active[userID]
	if !ok {
		return nil, noSession(userID)
	}
	return s.view(session), nil
}

// PauseSession ставит таймер на паузу и останавливает трекинг задачи
func (s *FocusService) PauseSession(ctx context.Context, userID string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.active[userID]
	if !ok {
		return nil, noSession(userID)
	}
	if err := session.Pause(s.clock.Now()); err != nil {
		return nil, NewBusinessError(CodeInvalidTransition, "Сессия уже на паузе").Wrap(err)
	}

	if _, err := s.tasks.StopTracking(ctx, userID, session.TaskID); err != nil && !isCode(err, CodeNotTracking) {
		logger.Warn("Focus: Не удалось остановить трекинг на паузе", zap.Error(err))
	}

	logger.Info("Focus: Сессия на паузе", zap.String("session_id", session.ID.String()))
	return s.view(session), nil
}

func (s *FocusService) ResumeSession(ctx context.Context, userID string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.active[userID]
	if !ok {
		return nil, noSession(userID)
	}
	if err := session.Resume(s.clock.Now()); err != nil {
		return nil, NewBusinessError(CodeInvalidTransition, "Сессия не на паузе").Wrap(err)
	}

	if _, err := s.tasks.StartTracking(ctx, userID, session.TaskID); err != nil && !isCode(err, CodeAlreadyTracking) {
		logger.Warn("Focus: Не удалось возобновить трекинг", zap.Error(err))
	}

	logger.Info("Focus: Сессия продолжена", zap.String("session_id", session.ID.String()))
	return s.view(session), nil
}

func (s *FocusService) RecordInterruption(userID string) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.active[userID]
	if !ok {
		return nil, noSession(userID)
	}
	session.Interruptions++
	return s.view(session), nil
}

func (s *FocusService) AddNote(userID, note string) (*SessionView, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) > maxNoteLength {
		return nil, NewValidationError("note", "максимальная длина "+strconv.Itoa(maxNoteLength))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.active[userID]
	if !ok {
		return nil, noSession(userID)
	}
	session.Note = note
	return s.view(session), nil
}

// EndSession закрывает сессию и пишет её в историю; completed завершает и задачу
func (s *FocusService) EndSession(ctx context.Context, userID string, completed bool) (*focus.Session, error) {
	s.mu.Lock()
	session, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return nil, noSession(userID)
	}
	delete(s.active, userID)
	s.mu.Unlock()

	session.Finish(s.clock.Now(), completed)

	if completed {
		if _, err := s.tasks.CompleteTask(ctx, userID, session.TaskID); err != nil {
			logger.Warn("Focus: Задача сессии не завершена", zap.Error(err), zap.String("task_id", session.TaskID.String()))
		}
	} else if _, err := s.tasks.StopTracking(ctx, userID, session.TaskID); err != nil && !isCode(err, CodeNotTracking) {
		logger.Warn("Focus: Не удалось остановить трекинг", zap.Error(err))
	}

	metrics.FocusSessions.WithLabelValues(strconv.FormatBool(completed)).Inc()

	if err := s.repo.Save(ctx, session); err != nil {
		return session, fmt.Errorf("сохранение сессии: %w", err)
	}

	logger.Info("Focus: Сессия завершена",
		zap.String("session_id", session.ID.String()),
		zap.Int64("focused_seconds", session.FocusedSeconds),
		zap.Bool("completed", completed))
	return session, nil
}

func (s *FocusService) History(ctx context.Context, userID string, limit int) ([]*focus.Session, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	sessions, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("история сессий: %w", err)
	}
	return sessions, nil
}

func (s *FocusService) Stats(ctx context.Context, userID string) (focus.Stats, error) {
	sessions, err := s.repo.ListByUser(ctx, userID, 0)
	if err != nil {
		return focus.Stats{}, fmt.Errorf("статистика сессий: %w", err)
	}
	return focus.ComputeStats(sessions, s.clock.Now(), s.settings), nil
}

// EndAll закрывает незавершённые сессии при остановке сервиса
func (s *FocusService) EndAll(ctx context.Context) {
	s.mu.Lock()
	users := make([]string, 0, len(s.active))
	for userID := range s.active {
		users = append(users, userID)
	}
	s.mu.Unlock()

	for _, userID := range users {
		if _, err := s.EndSession(ctx, userID, false); err != nil {
			logger.Warn("Focus: Сессия не сохранена при остановке", zap.Error(err), zap.String("user_id", userID))
		}
	}
}
