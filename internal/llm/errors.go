package llm

import (
	"errors"
	"fmt"
)

// ServiceError means the completion service could not produce a response:
// network failure, API error, or timeout, after the configured retry budget.
type ServiceError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service unavailable for %s after %d attempt(s): %v",
		e.Operation, e.Attempts, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// MalformedError means the service responded but the content failed structured
// parsing. Raw holds the response text for diagnosis; callers must not log it
// at a level that persists resume content.
type MalformedError struct {
	Operation string
	Raw       string
	Cause     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response for %s: %v", e.Operation, e.Cause)
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}

// IsUnavailable reports whether err is a ServiceError.
func IsUnavailable(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
