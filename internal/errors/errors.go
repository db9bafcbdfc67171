package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/cadence/internal/logger"
)

var (
	// ErrValidation marks input rejected before any mutation was attempted.
	ErrValidation = stderrors.New("validation failed")
	// ErrConflict is returned by a store when an insert hits an existing unique key.
	ErrConflict = stderrors.New("record already exists")
	// ErrPersistenceUnavailable is returned when the backing table or store is missing.
	ErrPersistenceUnavailable = stderrors.New("persistence unavailable")
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = stderrors.New("not found")
	// ErrPermissionDenied is returned when the actor lacks the supervisory role.
	ErrPermissionDenied = stderrors.New("permission denied")
	// ErrPreconditionNotMet is returned when a goal is not yet at 100%.
	ErrPreconditionNotMet = stderrors.New("precondition not met")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// Is, As and New mirror the standard library so callers only import this package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }

// UserMessage returns the text shown to a person for err. The gate failures get
// distinct messages so the user can tell "no permission" apart from "not yet 100%".
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrPermissionDenied):
		return "You do not have permission to change this goal's completion."
	case Is(err, ErrPreconditionNotMet):
		return "This goal cannot be completed until its progress reaches 100%."
	case Is(err, ErrValidation):
		return err.Error()
	case Is(err, ErrNotFound):
		return err.Error()
	case Is(err, ErrPersistenceUnavailable):
		return "Changes are being kept locally; the server is not accepting them yet."
	default:
		return "Something went wrong saving your change. It has been undone; please try again."
	}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
