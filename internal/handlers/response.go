package handlers

import (
	"encoding/json"
	"matrixTasks/internal/logger"
	"net/http"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

func responseWithJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("HTTP: Не удалось записать ответ", err)
	}
}

// responseWithFields собирает объект ответа из пар ключ-значение
func responseWithFields(w http.ResponseWriter, code int, payload ...Payload) {
	storage := make(map[string]any, len(payload))
	for _, pl := range payload {
		storage[pl.Key] = pl.Payload
	}
	responseWithJSON(w, code, storage)
}

func responseWithError(w http.ResponseWriter, r *http.Request, code int, errCode, message string) {
	responseWithFields(w, code,
		toPayload("code", errCode),
		toPayload("message", message),
		toPayload("request_id", requestID(r)),
	)
}
