package internal

import (
	"errors"
	"fmt"
)

// ErrDispatcherClosed is returned by Send after the dispatcher has been closed
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// ValidationError represents rejected user input. No state was changed.
type ValidationError struct {
	Field  string // "text", "name", "index", "model", "path"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError represents a reference to something that is already gone
type NotFoundError struct {
	Kind string // "session"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ModelError represents a failed or timed out model call
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error [%s]: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is or wraps a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func sessionNotFound(id string) error {
	return &NotFoundError{Kind: "session", ID: id}
}
