package common

import (
	"context"
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline error taxonomy.
var (
	ErrDecode           = errors.New("image decode failed")
	ErrPreprocessing    = errors.New("preprocessing failed")
	ErrExtraction       = errors.New("extraction failed")
	ErrCancelled        = errors.New("processing cancelled")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Error codes carried by AppError.Code.
const (
	CodeDecode        = "DECODE_ERROR"
	CodePreprocessing = "PREPROCESSING_ERROR"
	CodeExtraction    = "EXTRACTION_ERROR"
	CodeCancelled     = "CANCELLED"
	CodeConfig        = "CONFIG_ERROR"
	CodeStorage       = "STORAGE_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewDecodeError reports unreadable image bytes.
func NewDecodeError(message string, cause error) *AppError {
	return NewAppError(CodeDecode, message, join(ErrDecode, cause))
}

// NewPreprocessingError reports a failed enhancement stage.
func NewPreprocessingError(message string, cause error) *AppError {
	return NewAppError(CodePreprocessing, message, join(ErrPreprocessing, cause))
}

// NewExtractionError reports a recognition or text-layer failure.
func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, join(ErrExtraction, cause))
}

// NewCancelledError reports cooperative cancellation observed mid-stage.
func NewCancelledError(stage string, cause error) *AppError {
	return NewAppError(CodeCancelled, stage+" cancelled", join(ErrCancelled, cause))
}

// IsCancellation reports whether err stems from a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}
