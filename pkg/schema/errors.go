package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeUnknownAction     = "UNKNOWN_ACTION"
	ErrCodeExecution         = "EXECUTION_ERROR"
	ErrCodeTimeout           = "TIMEOUT_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeSession           = "SESSION_ERROR"
	ErrCodeRetryExhausted    = "RETRY_EXHAUSTED"
	ErrCodeStore             = "STORE_ERROR"
)

// BotError is the structured error type for all botwright operations.
type BotError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Action  string         `json:"action,omitempty"`
	Cause   error          `json:"-"`
}

func (e *BotError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("[%s] action %s: %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *BotError) Unwrap() error {
	return e.Cause
}

// NewError creates a new BotError.
func NewError(code, message string) *BotError {
	return &BotError{Code: code, Message: message}
}

// NewErrorf creates a new BotError with a formatted message.
func NewErrorf(code, format string, args ...any) *BotError {
	return &BotError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithAction attaches an action name to the error.
func (e *BotError) WithAction(name string) *BotError {
	e.Action = name
	return e
}

// WithCause attaches an underlying cause.
func (e *BotError) WithCause(err error) *BotError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *BotError) WithDetails(details map[string]any) *BotError {
	e.Details = details
	return e
}
