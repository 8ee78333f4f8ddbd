package errors

import (
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
	ERR_INFRASTRUCTURE ErrorLevel = "infrastructure"
	ERR_APPLICATION    ErrorLevel = "application"
	ERR_DOMAIN         ErrorLevel = "domain"
	ERR_VALIDATION     ErrorLevel = "validation"
	ERR_UNKNOWN        ErrorLevel = "unknown"
	ERR_AUTH           ErrorLevel = "auth"
	ERR_PERMISSION     ErrorLevel = "permission"
)

// Codes attached to errors that leave the engine or the submission boundary.
const (
	CodeInvalidOperand   = "INVALID_OPERAND"
	CodeInvalidOperator  = "INVALID_OPERATOR"
	CodeDivisionByZero   = "DIVISION_BY_ZERO"
	CodeInvalidDelay     = "INVALID_DELAY"
	CodeEngineNotRunning = "ENGINE_NOT_RUNNING"
	CodeExecutorFailure  = "EXECUTOR_FAILURE"
	CodeStoreFailure     = "STORE_FAILURE"
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

// Is reports whether err matches target. The argument order follows the
// rest of this package (target first).
func Is(target, err error) bool {
	return errs.Is(err, target)
}

func IsExtendError(err error) bool {
	var extendErr *ExtendError
	return errs.As(err, &extendErr)
}

func As(err error, target interface{}) bool {
	return errs.As(err, target)
}

// Join is errors.Join re-exported so callers do not need both packages.
func Join(errors ...error) error {
	return errs.Join(errors...)
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
	var extendErr *ExtendError
	if errs.As(err, &extendErr) {
		// Already classified; keep the original level, code and metadata.
		return extendErr
	}
	return &ExtendError{
		Level:      level,
		Err:        err,
		StackTrace: captureStackTrace(),
	}
}

func InfraError(err error) *ExtendError {
	return wrap(err, ERR_INFRASTRUCTURE)
}

func AppError(err error) *ExtendError {
	return wrap(err, ERR_APPLICATION)
}

func DomainError(err error) *ExtendError {
	return wrap(err, ERR_DOMAIN)
}

func ValidationError(err error) *ExtendError {
	return wrap(err, ERR_VALIDATION)
}

func UnknownError(err error) *ExtendError {
	return wrap(err, ERR_UNKNOWN)
}

func AuthError(err error) *ExtendError {
	return wrap(err, ERR_AUTH)
}

func PermissionError(err error) *ExtendError {
	return wrap(err, ERR_PERMISSION)
}

func levelOf(err error) ErrorLevel {
	var extendErr *ExtendError
	if errs.As(err, &extendErr) && extendErr != nil {
		return extendErr.Level
	}
	return ERR_UNKNOWN
}

// GetLevel returns the level of the first ExtendError in err's chain.
// Unclassified errors are reported as ERR_UNKNOWN.
func GetLevel(err error) ErrorLevel {
	return levelOf(err)
}

// GetCode returns the code of the first ExtendError in err's chain.
func GetCode(err error) string {
	var extendErr *ExtendError
	if errs.As(err, &extendErr) && extendErr != nil {
		return extendErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && GetCode(err) == code
}

func IsInfraError(err error) bool      { return levelOf(err) == ERR_INFRASTRUCTURE }
func IsAppError(err error) bool        { return levelOf(err) == ERR_APPLICATION }
func IsAuthError(err error) bool       { return levelOf(err) == ERR_AUTH }
func IsPermissionError(err error) bool { return levelOf(err) == ERR_PERMISSION }
func IsDomainError(err error) bool     { return levelOf(err) == ERR_DOMAIN }
func IsValidationError(err error) bool { return levelOf(err) == ERR_VALIDATION }
func IsUnknownError(err error) bool    { return levelOf(err) == ERR_UNKNOWN }
