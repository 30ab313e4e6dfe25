package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Validation error codes. These are always fatal to the call that
// produced them and are never stored per node.
const (
	ErrValidation        ErrorCode = "VALIDATION"
	ErrCycleDetected     ErrorCode = "CYCLE_DETECTED"
	ErrMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	ErrUnknownAgentType  ErrorCode = "UNKNOWN_AGENT_TYPE"
	ErrDuplicateAgent    ErrorCode = "DUPLICATE_AGENT_TYPE"
	ErrBudgetDenied      ErrorCode = "BUDGET_DENIED"
)

// Execution error codes. These are contained per node and surface only
// through the run summary.
const (
	ErrAgentExecution     ErrorCode = "AGENT_EXECUTION"
	ErrNodeTimeout        ErrorCode = "NODE_TIMEOUT"
	ErrRetriesExhausted   ErrorCode = "RETRIES_EXHAUSTED"
	ErrRunKilled          ErrorCode = "RUN_KILLED"
	ErrCheckpointRejected ErrorCode = "CHECKPOINT_REJECTED"
	ErrDependencyFailed   ErrorCode = "DEPENDENCY_FAILED"
)

// Engine error codes. These indicate defects, not user errors.
const (
	ErrInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrNoPendingCheckpoint ErrorCode = "NO_PENDING_CHECKPOINT"
	ErrInternal            ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	NodeID    string    `json:"node_id,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithNode attaches the node ID the error belongs to.
func (e *Error) WithNode(nodeID string) *Error {
	e.NodeID = nodeID
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ValidationError aggregates every problem found in a workflow
// definition so a caller can fix the whole definition in one pass.
type ValidationError struct {
	Errors []*Error `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Add appends an error to the aggregate.
func (e *ValidationError) Add(err *Error) {
	e.Errors = append(e.Errors, err)
}

// HasErrors reports whether any problem was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// IsValidation checks whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
