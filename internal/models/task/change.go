package task

import (
	"fmt"
	"strings"
)

type ChangeKind string

const ChangeTitle ChangeKind = "title"
const ChangeDescription ChangeKind = "description"
const ChangePriority ChangeKind = "priority"

// Change - одна команда частичного обновления.
// Статус через Change не меняется: переходы идут через трекер (start/complete/restore).
type Change struct {
	Kind  ChangeKind
	Value string
}

func WithTitle(title string) Change {
	return Change{Kind: ChangeTitle, Value: strings.TrimSpace(title)}
}

func WithDescription(description string) Change {
	return Change{Kind: ChangeDescription, Value: strings.TrimSpace(description)}
}

// WithPriority перемещает задачу в другой квадрант
func WithPriority(priority Priority) Change {
	return Change{Kind: ChangePriority, Value: string(priority)}
}

func (c Change) apply(t *Task) error {
	switch c.Kind {
	case ChangeTitle:
		t.Title = c.Value
	case ChangeDescription:
		t.Description = c.Value
	case ChangePriority:
		t.Priority = Priority(c.Value)
	default:
		return fmt.Errorf("неизвестный тип изменения %q", c.Kind)
	}
	return nil
}

// ApplyChanges применяет изменения к копии задачи и проверяет результат целиком.
// Исходная задача не меняется.
func ApplyChanges(t *Task, changes ...Change) (*Task, error) {
	updated := t.Clone()
	for _, c := range changes {
		if err := c.apply(updated); err != nil {
			return nil, err
		}
	}
	if err := Validate(updated); err != nil {
		return nil, err
	}
	return updated, nil
}
