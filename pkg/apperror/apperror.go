package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an AppError for callers and status mapping.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindPersistence       Kind = "PERSISTENCE_ERROR"
)

// Sentinel errors, matched with errors.Is against any AppError of the same kind.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPersistence       = errors.New("storage failure")
)

// AppError represents an application error with context
type AppError struct {
	Kind       Kind              `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`

	// Available is set on insufficient stock errors.
	Available int  `json:"available,omitempty"`
	Retryable bool `json:"retryable,omitempty"`

	Err error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *AppError) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindNotFound:
		return target == ErrNotFound
	case KindConflict:
		return target == ErrConflict
	case KindInsufficientStock:
		return target == ErrInsufficientStock
	case KindPersistence:
		return target == ErrPersistence
	}
	return false
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       string(KindValidation),
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// ValidationField reports a single offending field.
func ValidationField(field, message string) *AppError {
	e := Validation(map[string]string{field: message})
	e.Message = fmt.Sprintf("%s: %s", field, message)
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       string(KindNotFound),
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Kind:       KindConflict,
		Code:       string(KindConflict),
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// InsufficientStock reports that a batch holds fewer units than requested.
func InsufficientStock(available, requested int) *AppError {
	return &AppError{
		Kind:       KindInsufficientStock,
		Code:       string(KindInsufficientStock),
		Message:    fmt.Sprintf("insufficient stock: %d available, %d requested", available, requested),
		StatusCode: http.StatusConflict,
		Available:  available,
		Details: map[string]string{
			"available": fmt.Sprint(available),
			"requested": fmt.Sprint(requested),
		},
	}
}

// Persistence wraps a storage failure. The wrapped error is never shown to clients.
func Persistence(err error) *AppError {
	e := &AppError{
		Kind:       KindPersistence,
		Code:       string(KindPersistence),
		Message:    "storage failure",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Message = "operation timed out"
		e.Retryable = true
		e.StatusCode = http.StatusServiceUnavailable
	}
	return e
}

// From normalises any error into an AppError.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e := NotFound("record")
		e.Err = err
		return e
	}
	return Persistence(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
