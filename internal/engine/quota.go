package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer is the per-run processing limit.
//
// Check is called before starting each item. Once the limit is reached
// every further Check fails and the loop stops issuing new work; calls
// already in flight complete normally. A limit of zero or less disables
// the governor.
//
// Each pass owns its own QuotaEnforcer; passes of a namespace fan-out do
// not share one.
type QuotaEnforcer struct {
	maxItems int
	current  int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxItems int) *QuotaEnforcer {
	return &QuotaEnforcer{maxItems: maxItems}
}

// Check counts one attempted item. Returns LimitReachedError without
// counting when the limit has already been reached.
func (q *QuotaEnforcer) Check(naturalKey string) error {
	if q.maxItems > 0 && q.current >= q.maxItems {
		return &LimitReachedError{NaturalKey: naturalKey, Limit: q.maxItems}
	}
	q.current++
	return nil
}

// Current returns the number of attempted items.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxItems returns the limit, or zero when unlimited.
func (q *QuotaEnforcer) MaxItems() int {
	return q.maxItems
}

// LimitReachedError is returned by Check once the limit is reached.
type LimitReachedError struct {
	NaturalKey string // first item not attempted
	Limit      int
}

// Error implements the error interface.
func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("limit of %d items reached before %s", e.Limit, e.NaturalKey)
}

// IsLimitReachedError returns true if the error is a LimitReachedError.
// Uses errors.As to handle wrapped errors.
func IsLimitReachedError(err error) bool {
	var le *LimitReachedError
	return errors.As(err, &le) || hasCode(err, ErrCodeLimitReached)
}
