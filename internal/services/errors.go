// Package services defines the business logic behind the chat, feed, and
// feedback endpoints. This file centralizes service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// ValidationError reports a payload that failed shape checks. Reason is a
// short machine-readable code; handlers pick the user text.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// Is lets errors.Is match any ValidationError with the same Reason.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// Validation sentinels.
var (
	// ErrMissingField is returned when a feedback field is empty after trimming.
	ErrMissingField = &ValidationError{Reason: "missing field"}

	// ErrInvalidEmail is returned when the submitter's email is not of the
	// form local@domain.tld.
	ErrInvalidEmail = &ValidationError{Reason: "invalid email"}

	// ErrMissingMessage is returned when a chat request has no message text.
	ErrMissingMessage = &ValidationError{Reason: "missing message"}
)

// Upstream names used in errors, logs and metrics.
const (
	UpstreamLLM    = "llm"
	UpstreamFeed   = "feed"
	UpstreamResend = "resend"
)

// UpstreamError wraps a failed call to an external API. Malformed is set when
// the upstream answered but the payload could not be used.
type UpstreamError struct {
	Upstream  string
	Malformed bool
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("%s: malformed response: %v", e.Upstream, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err came from an upstream call.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
