// Package apierror classifies Twitter API responses into typed outcomes and
// defines the errors the reader surfaces to its callers.
package apierror

import (
	"errors"
	"fmt"
)

// Outcome is the classification of a single API response.
type Outcome string

const (
	// OutcomeSuccess is a 200 response.
	OutcomeSuccess Outcome = "success"

	// OutcomeNotFound is a 404 response (unknown user or tweet).
	OutcomeNotFound Outcome = "not_found"

	// OutcomeSuspended is a 403 response (suspended account).
	OutcomeSuspended Outcome = "suspended"

	// OutcomeProtected is a 401 response (protected account).
	OutcomeProtected Outcome = "protected"

	// OutcomeServer is any 5xx response.
	OutcomeServer Outcome = "server_error"

	// OutcomeUnknown is every other status.
	OutcomeUnknown Outcome = "unknown"
)

// Sentinel errors matched by errors.Is against an *Error of the same outcome.
var (
	ErrNotFound  = errors.New("not found")
	ErrSuspended = errors.New("suspended")
	ErrProtected = errors.New("protected")
	ErrServer    = errors.New("server error")
	ErrUnknown   = errors.New("unknown error")

	// ErrAuth matches any *AuthError.
	ErrAuth = errors.New("authentication failed")
)

// Error is a non-success API response.
type Error struct {
	Outcome    Outcome
	StatusCode int
	Status     string

	// Code and Message come from errors[0] of the response body, when present.
	Code    int
	Message string

	// SubjectID is the user, tweet or screen name the request was about.
	SubjectID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	subject := ""
	if e.SubjectID != "" {
		subject = fmt.Sprintf(" [%s]", e.SubjectID)
	}
	if e.Code != 0 {
		return fmt.Sprintf("twitter %s (status %d)%s: code %d: %s",
			e.Outcome, e.StatusCode, subject, e.Code, e.Message)
	}
	return fmt.Sprintf("twitter %s (status %d)%s: %s",
		e.Outcome, e.StatusCode, subject, e.Message)
}

// Is reports whether target is the sentinel for e's outcome.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Outcome)
}

// AuthError is returned when the bearer token exchange fails. It is never
// retried by the reader.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("twitter auth error: %s: %v", e.Reason, e.Err)
	}
	return "twitter auth error: " + e.Reason
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// Retryable reports whether err is transient from the server's point of view.
// Subject errors (not found, suspended, protected) should be skipped instead.
// An *AuthError is never retryable, whatever status the token request got.
func Retryable(err error) bool {
	if errors.Is(err, ErrAuth) {
		return false
	}
	return errors.Is(err, ErrServer)
}

// SubjectError reports whether err concerns only the requested subject, so a
// batch caller can skip it and continue with the next one. Bad credentials
// concern every subject, so an *AuthError is never a subject error.
func SubjectError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return false
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSuspended) || errors.Is(err, ErrProtected)
}

func sentinel(o Outcome) error {
	switch o {
	case OutcomeNotFound:
		return ErrNotFound
	case OutcomeSuspended:
		return ErrSuspended
	case OutcomeProtected:
		return ErrProtected
	case OutcomeServer:
		return ErrServer
	case OutcomeUnknown:
		return ErrUnknown
	default:
		return nil
	}
}
