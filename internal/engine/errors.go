package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/shopsync/internal/remote"
)

// SyncError is an item-level failure detected while reconciling.
//
// Sync errors never abort a pass. The reconciler logs them, counts the item
// as failed and moves on to the next one.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Op names the remote operation that failed.
	Op string

	// NaturalKey identifies the affected item.
	NaturalKey string

	// Message is a human-readable description.
	Message string

	// Err is the underlying transport error or remote.UserErrors.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeTransport indicates the call never produced a response
	// (network, auth, throttling, malformed reply).
	ErrCodeTransport SyncErrorCode = "TRANSPORT"

	// ErrCodeUserError indicates an in-band rejection.
	ErrCodeUserError SyncErrorCode = "USER_ERROR"

	// ErrCodeFeatureLimit indicates the rejection that allows the one-shot
	// capability downgrade.
	ErrCodeFeatureLimit SyncErrorCode = "FEATURE_LIMIT"

	// ErrCodeNotFound indicates a lookup matched nothing.
	ErrCodeNotFound SyncErrorCode = "NOT_FOUND"

	// ErrCodeLimitReached indicates the per-run limit stopped the pass.
	ErrCodeLimitReached SyncErrorCode = "LIMIT_REACHED"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.NaturalKey != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Code, e.Op, e.NaturalKey, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Code, e.Op, msg)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// classify wraps a remote failure in a SyncError with the matching code.
func classify(op, naturalKey string, err error) error {
	if err == nil {
		return nil
	}
	code := ErrCodeTransport
	switch {
	case remote.IsFeatureLimit(err):
		code = ErrCodeFeatureLimit
	case remote.IsNotFound(err):
		code = ErrCodeNotFound
	default:
		if _, ok := remote.AsUserErrors(err); ok {
			code = ErrCodeUserError
		}
	}
	return &SyncError{Code: code, Op: op, NaturalKey: naturalKey, Err: err}
}

func hasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsFeatureLimitError returns true if err is a feature-limit rejection.
// Uses errors.As to handle wrapped errors.
func IsFeatureLimitError(err error) bool {
	return hasCode(err, ErrCodeFeatureLimit) || remote.IsFeatureLimit(err)
}

// IsTransportError returns true if err is a transport failure.
func IsTransportError(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

// IsUserError returns true if err is an in-band rejection of any kind.
func IsUserError(err error) bool {
	return hasCode(err, ErrCodeUserError) || hasCode(err, ErrCodeFeatureLimit)
}
