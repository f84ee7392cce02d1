package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable classification returned to callers when
// an operation is refused. Every denial carries one of these plus a
// human-readable message; nothing in this taxonomy is ever raised as a fault
// past the service boundary.
type ErrorCode string

const (
	CodeInsufficientAuthority ErrorCode = "insufficient_authority"
	CodeInvalidTransition     ErrorCode = "invalid_transition"
	CodeUnknownTransition     ErrorCode = "unknown_transition"
	CodePreconditionUnmet     ErrorCode = "precondition_unmet"
	CodeValidation            ErrorCode = "validation_error"
	CodeConflict              ErrorCode = "conflict"
	CodeNotFound              ErrorCode = "not_found"
	CodeUnauthorized          ErrorCode = "unauthorized"
)

// WorkflowError is a structured denial. It satisfies error so it flows
// through the usual return paths, and errors.As recovers it at the HTTP
// boundary for status mapping.
type WorkflowError struct {
	Code    ErrorCode
	Message string
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewWorkflowError(code ErrorCode, format string, args ...any) *WorkflowError {
	return &WorkflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code, or empty when err is not a WorkflowError.
func CodeOf(err error) ErrorCode {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}
