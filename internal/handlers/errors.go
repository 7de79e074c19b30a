package handlers

import (
	"errors"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// handleError отвечает клиенту по ошибке сервиса; всё, что не бизнес-ошибка, это 500
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode),
			zap.String("request_id", requestID(r)))

		responseWithFields(w, statusCode,
			toPayload("code", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
			toPayload("request_id", requestID(r)),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("request_id", requestID(r)))
	responseWithError(w, r, http.StatusInternalServerError, "INTERNAL", "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound, service.CodeNoSession:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict, service.CodeInvalidTransition, service.CodeTaskCompleted,
		service.CodeAlreadyTracking, service.CodeNotTracking, service.CodeSessionActive:
		return http.StatusConflict
	case service.CodeChatUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
