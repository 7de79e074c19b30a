package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("quadrant", func(fl validator.FieldLevel) bool {
		return Priority(fl.Field().String()).Valid()
	})
	validate.RegisterStructValidation(lifecycleInvariants, Task{})
}

// инварианты, которые нельзя выразить тегами полей
func lifecycleInvariants(sl validator.StructLevel) {
	t := sl.Current().Interface().(Task)

	if t.IsTracking && t.Status != StatusInProgress {
		sl.ReportError(t.IsTracking, "is_tracking", "IsTracking", "tracking_in_progress", "")
	}
	if (t.CompletedAt != nil) != (t.Status == StatusCompleted) {
		sl.ReportError(t.CompletedAt, "completed_at", "CompletedAt", "completed_at_status", "")
	}
}

// FieldError - первая ошибка валидации в виде поле/причина
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Reason)
}

func Validate(t *Task) error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &FieldError{Field: first.Field(), Reason: reason(first)}
	}
	return err
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		return "минимальная длина " + fe.Param()
	case "max":
		return "максимальная длина " + fe.Param()
	case "quadrant":
		return "неизвестный квадрант"
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "gte":
		return "значение не может быть отрицательным"
	case "tracking_in_progress":
		return "трекинг возможен только для задачи в работе"
	case "completed_at_status":
		return "completed_at задаётся только для завершённой задачи"
	}
	return fe.Tag()
}
