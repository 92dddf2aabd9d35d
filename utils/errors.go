package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kinds. An *AppError unwraps to exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrDependencyConflict = errors.New("dependency conflict")
)

// CodeEmailNotConfirmed is returned with a 403 when an unconfirmed account tries to log in.
const CodeEmailNotConfirmed = "EMAIL_NOT_CONFIRMED"

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the error type every service returns for expected failures.
type AppError struct {
	Kind      error
	Status    int
	Code      string
	Message   string
	Conflicts map[string]string
	Details   []FieldError
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Kind }

// WithCode attaches a machine readable code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func statusFor(kind error) int {
	switch kind {
	case ErrValidation, ErrInvalidRequest, ErrDependencyConflict:
		return fiber.StatusBadRequest
	case ErrUnauthenticated:
		return fiber.StatusUnauthorized
	case ErrForbidden:
		return fiber.StatusForbidden
	case ErrNotFound:
		return fiber.StatusNotFound
	case ErrConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func newAppError(kind error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Status: statusFor(kind), Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *AppError {
	return newAppError(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...any) *AppError {
	return newAppError(ErrForbidden, format, args...)
}

func Unauthenticated(format string, args ...any) *AppError {
	return newAppError(ErrUnauthenticated, format, args...)
}

func InvalidRequest(format string, args ...any) *AppError {
	return newAppError(ErrInvalidRequest, format, args...)
}

func Conflict(format string, args ...any) *AppError {
	return newAppError(ErrConflict, format, args...)
}

// DependencyConflict reports a delete blocked by dependent rows.
func DependencyConflict(format string, args ...any) *AppError {
	return newAppError(ErrDependencyConflict, format, args...)
}

// FieldConflicts reports uniqueness violations keyed by field name.
func FieldConflicts(conflicts map[string]string) *AppError {
	err := newAppError(ErrConflict, "resource already exists")
	err.Conflicts = conflicts
	return err
}

// Invalid builds a validation error from field errors.
func Invalid(details ...FieldError) *AppError {
	err := newAppError(ErrValidation, "validation failed")
	err.Details = details
	return err
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
