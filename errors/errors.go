package errors

import (
	"context"
	errs "errors"
	"fmt"
	"runtime"
	"strings"
)

type ErrorLevel string

func (e ErrorLevel) String() string {
	return string(e)
}

const (
	// ERR_VALIDATION: caller supplied a nil/absent required value. Surfaced
	// synchronously, never retried.
	ERR_VALIDATION ErrorLevel = "validation"
	// ERR_CANCELLED: expected outcome of scheduler or task shutdown.
	ERR_CANCELLED ErrorLevel = "cancelled"
	// ERR_ACTION: a failure raised by an invoked action or a queue processing
	// attempt. Isolated to the originating task/operation.
	ERR_ACTION ErrorLevel = "action"
	// ERR_INFRASTRUCTURE: a backing store (redis, postgres) failure.
	ERR_INFRASTRUCTURE ErrorLevel = "infrastructure"
	ERR_UNKNOWN        ErrorLevel = "unknown"
)

type ExtendError struct {
	Level      ErrorLevel     `json:"level"`
	Err        error          `json:"error"`
	Code       string         `json:"code,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	StackTrace string         `json:"-"`
}

func (e *ExtendError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	msg := e.Err.Error()
	if e.Code != "" {
		msg = fmt.Sprintf("[%s] %s", e.Code, msg)
	}
	return msg
}

func (e *ExtendError) Unwrap() error {
	return e.Err
}

func (e *ExtendError) WithCode(code string) *ExtendError {
	e.Code = code
	return e
}

func (e *ExtendError) WithMetadata(key string, value any) *ExtendError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

func New(message string) error {
	return errs.New(message)
}

func Is(err, target error) bool {
	return errs.Is(err, target)
}

func IsExtendError(err error) bool {
	var extendErr *ExtendError
	return errs.As(err, &extendErr)
}

func As(err error, target interface{}) bool {
	return errs.As(err, target)
}

func captureStackTrace() string {
	var sb strings.Builder
	// Skip 3 frames: captureStackTrace, wrap, and the caller of wrap
	for i := 3; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fmt.Fprintf(&sb, "%s:%d\n", file, line)
	}
	return sb.String()
}

func wrap(err error, level ErrorLevel) *ExtendError {
	if IsExtendError(err) {
		// Already an ExtendError; return it to preserve metadata and code.
		return err.(*ExtendError)
	}
	return &ExtendError{
		Level:      level,
		Err:        err,
		StackTrace: captureStackTrace(),
	}
}

func ValidationError(err error) *ExtendError {
	return wrap(err, ERR_VALIDATION)
}

func CancelledError(err error) *ExtendError {
	return wrap(err, ERR_CANCELLED)
}

func ActionError(err error) *ExtendError {
	return wrap(err, ERR_ACTION)
}

func InfraError(err error) *ExtendError {
	return wrap(err, ERR_INFRASTRUCTURE)
}

func UnknownError(err error) *ExtendError {
	return wrap(err, ERR_UNKNOWN)
}

func getErrorLevel(err *ExtendError) ErrorLevel {
	if err == nil {
		return ERR_UNKNOWN
	}
	return err.Level
}

func GetLevel(err error) ErrorLevel {
	if IsExtendError(err) {
		var extendErr *ExtendError
		errs.As(err, &extendErr)
		return getErrorLevel(extendErr)
	}
	return ERR_UNKNOWN
}

func IsValidationError(err *ExtendError) bool {
	return getErrorLevel(err) == ERR_VALIDATION
}
func IsCancelledError(err *ExtendError) bool {
	return getErrorLevel(err) == ERR_CANCELLED
}
func IsActionError(err *ExtendError) bool {
	return getErrorLevel(err) == ERR_ACTION
}
func IsInfraError(err *ExtendError) bool {
	return getErrorLevel(err) == ERR_INFRASTRUCTURE
}
func IsUnknownError(err *ExtendError) bool {
	return getErrorLevel(err) == ERR_UNKNOWN
}

// IsCancellation reports whether err stems from a cancelled context or was
// explicitly wrapped as ERR_CANCELLED. Used by the task runner to tell
// shutdown aborts apart from real action failures.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errs.Is(err, context.Canceled) || errs.Is(err, context.DeadlineExceeded) {
		return true
	}
	var extendErr *ExtendError
	if errs.As(err, &extendErr) {
		return getErrorLevel(extendErr) == ERR_CANCELLED
	}
	return false
}
