package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvariantViolation is returned when an operation would break a
	// completion or due date/time consistency rule.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNotFound is returned when an identifier does not resolve to a task.
	ErrNotFound = errors.New("todo not found")

	// ErrIllegalArgument is returned for structurally invalid arguments.
	ErrIllegalArgument = errors.New("illegal argument")

	// ErrFormat is returned when date or time text cannot be parsed.
	ErrFormat = errors.New("invalid format")
)

// BadOperationError describes an operation rejected by a task.
// Trail holds the ancestor names of the task, nearest parent first.
type BadOperationError struct {
	Name    string
	Trail   []string
	Message string
}

func newBadOperation(t *Task, message string) *BadOperationError {
	return &BadOperationError{
		Name:    t.name,
		Trail:   t.Trail(),
		Message: message,
	}
}

func (e *BadOperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error in Todo '%s': %s", e.Name, e.Message)
	if len(e.Trail) == 0 {
		return b.String()
	}

	b.WriteString("\nTodoTrace:")
	child := e.Name
	for _, parent := range e.Trail {
		fmt.Fprintf(&b, "\nnote: in '%s' child of '%s'", child, parent)
		child = parent
	}
	return b.String()
}

// Unwrap returns ErrInvariantViolation.
func (e *BadOperationError) Unwrap() error {
	return ErrInvariantViolation
}

// FormatError reports date or time text that does not match its pattern.
type FormatError struct {
	Field string
	Text  string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Text, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Text)
}

// Unwrap returns ErrFormat and the underlying parse error.
func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

func notFound(id fmt.Stringer) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
