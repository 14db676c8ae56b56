package core

import (
	"strings"

	"taskmate/pkg/domain"
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func validateTask(t Task) error {
	if err := required("title", t.Title); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return ValidationError{Field: "status", Message: "unknown status " + string(t.Status)}
	}
	if !t.Priority.Valid() {
		return ValidationError{Field: "priority", Message: "unknown priority " + string(t.Priority)}
	}
	if t.Deadline != "" {
		if _, ok := domain.ParseDeadline(t.Deadline); !ok {
			return ValidationError{Field: "deadline", Message: "expected YYYY-MM-DD"}
		}
	}
	return nil
}

func validateFile(f FileAttachment) error {
	if err := required("name", f.Name); err != nil {
		return err
	}
	if f.Size < 0 {
		return ValidationError{Field: "size", Message: "must not be negative"}
	}
	if !f.Category.Valid() {
		return ValidationError{Field: "category", Message: "unknown category " + string(f.Category)}
	}
	if !f.Status.Valid() {
		return ValidationError{Field: "status", Message: "unknown status " + string(f.Status)}
	}
	return nil
}
