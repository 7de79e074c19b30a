package handlers

import (
	"matrixTasks/internal/handlers/dto"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/service"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxHistoryLimit = 200

type FocusHandler struct {
	FocusService FocusService
}

func NewFocusHandler(focusService FocusService) *FocusHandler {
	return &FocusHandler{FocusService: focusService}
}

func (h *FocusHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var request dto.StartSessionRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if request.TaskID == uuid.Nil {
		handleError(w, r, service.NewValidationError("task_id", "обязательное поле"), "start_session")
		return
	}

	view, err := h.FocusService.StartSession(r.Context(), userID(r), request.TaskID)
	if err != nil {
		handleError(w, r, err, "start_session")
		return
	}

	logger.Info("HTTP_OUT: Фокус-сессия начата",
		zap.String("session_id", view.ID.String()),
		zap.String("task_id", request.TaskID.String()))
	responseWithJSON(w, http.StatusCreated, view)
}

func (h *FocusHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.FocusService.CurrentSession(userID(r))
	if err != nil {
		handleError(w, r, err, "current_session")
		return
	}
	responseWithJSON(w, http.StatusOK, view)
}

func (h *FocusHandler) PauseSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.FocusService.PauseSession(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err, "pause_session")
		return
	}
	responseWithJSON(w, http.StatusOK, view)
}

func (h *FocusHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.FocusService.ResumeSession(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err, "resume_session")
		return
	}
	responseWithJSON(w, http.StatusOK, view)
}

func (h *FocusHandler) Interrupt(w http.ResponseWriter, r *http.Request) {
	view, err := h.FocusService.RecordInterruption(userID(r))
	if err != nil {
		handleError(w, r, err, "record_interruption")
		return
	}
	responseWithJSON(w, http.StatusOK, view)
}

func (h *FocusHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var request dto.NoteRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	view, err := h.FocusService.AddNote(userID(r), request.Note)
	if err != nil {
		handleError(w, r, err, "add_note")
		return
	}
	responseWithJSON(w, http.StatusOK, view)
}

// EndSession: тело необязательно, без него сессия считается прерванной
func (h *FocusHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var request dto.EndSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &request) {
		return
	}

	session, err := h.FocusService.EndSession(r.Context(), userID(r), request.Completed)
	if err != nil {
		handleError(w, r, err, "end_session")
		return
	}

	logger.Info("HTTP_OUT: Фокус-сессия завершена",
		zap.String("session_id", session.ID.String()),
		zap.Bool("completed", session.Completed),
		zap.Int64("focused_seconds", session.FocusedSeconds))
	responseWithJSON(w, http.StatusOK, session)
}

func (h *FocusHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "limit"),
				zap.String("value", raw),
				zap.String("client_ip", r.RemoteAddr))

			handleError(w, r, service.NewValidationError("limit", "ожидается число от 1 до "+strconv.Itoa(maxHistoryLimit)), "session_history")
			return
		}
		limit = parsed
	}

	sessions, err := h.FocusService.History(r.Context(), userID(r), limit)
	if err != nil {
		handleError(w, r, err, "session_history")
		return
	}
	responseWithJSON(w, http.StatusOK, sessions)
}

func (h *FocusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.FocusService.Stats(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err, "session_stats")
		return
	}

	responseWithFields(w, http.StatusOK,
		toPayload("stats", stats),
		toPayload("settings", h.FocusService.Settings()),
	)
}
