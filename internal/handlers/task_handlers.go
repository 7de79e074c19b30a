package handlers

import (
	"context"
	"matrixTasks/internal/handlers/dto"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/models/task"
	"matrixTasks/internal/service"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ServiceName = "matrix-tasks"

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Warn("HTTP: Хранилище недоступно", zap.Error(err))
		responseWithFields(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", ServiceName),
			toPayload("error", err.Error()),
		)
		return
	}

	responseWithFields(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", ServiceName),
		toPayload("time", time.Now().UTC()),
	)
}

func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := task.Filter{
		Status:   task.Status(query.Get("status")),
		Priority: task.Priority(query.Get("priority")),
	}

	tasks, err := s.TaskService.ListTasks(r.Context(), userID(r), filter)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), userID(r), request.Title, request.Description, request.Priority)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	w.Header().Set("Location", "/tasks/"+created.UUID.String())
	responseWithJSON(w, http.StatusCreated, dto.FromTask(created))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, err := s.TaskService.GetTask(r.Context(), userID(r), id)
	if err != nil {
		handleError(w, r, err, "get_task")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromTask(found))
}

// UpdateTask: статус проверяется до записи, затем правки полей с проверкой версии
// и смена статуса через трекер
func (s *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	ctx := r.Context()
	if request.Status != nil {
		if err := s.TaskService.CheckStatus(ctx, userID(r), id, *request.Status); err != nil {
			handleError(w, r, err, "update_task_status")
			return
		}
	}

	updated, err := s.TaskService.UpdateTask(ctx, userID(r), id, request.Version, request.Changes()...)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	if request.Status != nil && needsStatusChange(updated, *request.Status) {
		updated, err = s.TaskService.SetStatus(ctx, userID(r), id, *request.Status)
		if err != nil {
			handleError(w, r, err, "update_task_status")
			return
		}
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTask(updated))
}

// needsStatusChange: in_progress без трекинга значит возобновить таймер
func needsStatusChange(t *task.Task, status task.Status) bool {
	if status == task.StatusInProgress {
		return !t.IsTracking
	}
	return t.Status != status
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), userID(r), id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена", zap.String("task_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.TaskService.ClearCompleted(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err, "clear_completed")
		return
	}

	responseWithFields(w, http.StatusOK, toPayload("deleted", deleted))
}

type taskAction func(ctx context.Context, userID string, id uuid.UUID) (*task.Task, error)

// action - общий обработчик для start/stop/complete/restore
func (s *TaskHandler) action(operation string, act taskAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		result, err := act(r.Context(), userID(r), id)
		if err != nil {
			handleError(w, r, err, operation)
			return
		}

		logger.Info("HTTP_OUT: Действие выполнено",
			zap.String("operation", operation),
			zap.String("task_id", id.String()),
			zap.String("status", string(result.Status)))
		responseWithJSON(w, http.StatusOK, dto.FromTask(result))
	}
}

func (s *TaskHandler) StartTracking() http.HandlerFunc {
	return s.action("start_tracking", s.TaskService.StartTracking)
}

func (s *TaskHandler) StopTracking() http.HandlerFunc {
	return s.action("stop_tracking", s.TaskService.StopTracking)
}

func (s *TaskHandler) CompleteTask() http.HandlerFunc {
	return s.action("complete_task", s.TaskService.CompleteTask)
}

func (s *TaskHandler) RestoreTask() http.HandlerFunc {
	return s.action("restore_task", s.TaskService.RestoreTask)
}

func (s *TaskHandler) TrackedTime(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	seconds, err := s.TaskService.TrackedTime(r.Context(), userID(r), id)
	if err != nil {
		handleError(w, r, err, "tracked_time")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.TimeResponse{
		UUID:       id,
		Seconds:    seconds,
		Display:    service.FormatDuration(seconds),
		IsTracking: s.TaskService.IsTracking(id),
	})
}

func (s *TaskHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.TaskService.Analytics(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err, "analytics")
		return
	}

	responseWithJSON(w, http.StatusOK, summary)
}
