package service

import "fmt"

const CodeNotFound = "NOT_FOUND"
const CodeValidation = "VALIDATION_ERROR"
const CodeVersionConflict = "VERSION_CONFLICT"
const CodeInvalidTransition = "INVALID_TRANSITION"
const CodeTaskCompleted = "TASK_COMPLETED"
const CodeAlreadyTracking = "ALREADY_TRACKING"
const CodeNotTracking = "NOT_TRACKING"
const CodeSessionActive = "SESSION_ACTIVE"
const CodeNoSession = "NO_SESSION"
const CodeChatUnavailable = "CHAT_UNAVAILABLE"

type Resource string

const ResourceTask Resource = "Задача"
const ResourceSession Resource = "Сессия"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

// Wrap прикладывает исходную ошибку
func (b *BusinessError) Wrap(err error) *BusinessError {
	b.Err = err
	return b
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}
