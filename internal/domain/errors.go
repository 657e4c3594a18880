package domain

import (
	"errors"
	"fmt"
)

// FailureKind categorizes why a call gave up.
type FailureKind string

const (
	// FailureTimeout means every timeout retry was used up.
	FailureTimeout FailureKind = "timeout"

	// FailureStatus means the server answered with a non-success status
	// other than 429.
	FailureStatus FailureKind = "status"

	// FailureTransport covers connection errors that are not timeouts.
	FailureTransport FailureKind = "transport"

	// FailureDecode means the body could not be decoded.
	FailureDecode FailureKind = "decode"

	// FailureCanceled means the caller's context ended the call.
	FailureCanceled FailureKind = "canceled"
)

// RequestError is returned by every remote call that does not succeed.
// Rate limiting never produces one; it is always retried.
type RequestError struct {
	Kind       FailureKind
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d, attempts %d)", e.Kind, e.URL, e.StatusCode, e.Attempts)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (attempts %d): %v", e.Kind, e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s (attempts %d)", e.Kind, e.URL, e.Attempts)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from a wrapped error, or "" when err is
// not a RequestError.
func KindOf(err error) FailureKind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsCanceled reports whether err came from a canceled context.
func IsCanceled(err error) bool {
	return KindOf(err) == FailureCanceled
}

// IsTimeout reports whether err is an exhausted timeout retry.
func IsTimeout(err error) bool {
	return KindOf(err) == FailureTimeout
}
