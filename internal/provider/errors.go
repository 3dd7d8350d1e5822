package provider

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected search parameter. Nothing is fetched or
// persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransientError is a provider failure worth retrying: timeouts, 429, 5xx.
type TransientError struct {
	StatusCode int
	Cause      error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient provider failure (status %d): %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("transient provider failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// PermanentError is a terminal provider failure. Retrying will not help.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Body)
}

// PersistenceError wraps a structured-store write failure. The raw record is
// already committed when one of these surfaces.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("structured persistence failed during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// CompletionError records a failed supplementary inbound fetch. Callers treat
// it as advisory; the primary response stays usable.
type CompletionError struct {
	Cause error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("inbound completion failed: %v", e.Cause)
}

func (e *CompletionError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the retry loop should try again.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
