package remote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// CodeFeatureLimit is the rejection code returned when a definition asks for
// a quota-limited capability (pinning) and the deployment has no room left.
const CodeFeatureLimit = "PINNED_LIMIT_REACHED"

// Other rejection codes produced by Memory and commonly seen from the
// platform.
const (
	CodeTaken   = "TAKEN"
	CodeBlank   = "BLANK"
	CodeInvalid = "INVALID"
	CodeMissing = "NOT_FOUND"
)

// UserError is one in-band rejection returned by a mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

// Index returns the position of the rejected input for batch mutations,
// whose field paths look like ["metafields", "3", "value"].
func (u UserError) Index() (int, bool) {
	if len(u.Field) < 2 {
		return 0, false
	}
	i, err := strconv.Atoi(u.Field[1])
	if err != nil {
		return 0, false
	}
	return i, true
}

func (u UserError) String() string {
	var b strings.Builder
	if len(u.Field) > 0 {
		b.WriteString(strings.Join(u.Field, "."))
		b.WriteString(": ")
	}
	b.WriteString(u.Message)
	if u.Code != "" {
		fmt.Fprintf(&b, " (%s)", u.Code)
	}
	return b.String()
}

// UserErrors is a non-empty list of in-band rejections.
type UserErrors []UserError

func (e UserErrors) Error() string {
	parts := make([]string, len(e))
	for i, u := range e {
		parts[i] = u.String()
	}
	return "rejected: " + strings.Join(parts, "; ")
}

// HasCode reports whether any rejection carries code.
func (e UserErrors) HasCode(code string) bool {
	for _, u := range e {
		if u.Code == code {
			return true
		}
	}
	return false
}

// ForIndex returns the rejections of the i-th input of a batch.
func (e UserErrors) ForIndex(i int) UserErrors {
	var out UserErrors
	for _, u := range e {
		if idx, ok := u.Index(); ok && idx == i {
			out = append(out, u)
		}
	}
	return out
}

// AsUserErrors extracts in-band rejections from err.
func AsUserErrors(err error) (UserErrors, bool) {
	var ue UserErrors
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsFeatureLimit reports whether err is a rejection caused by a full
// capability quota.
func IsFeatureLimit(err error) bool {
	ue, ok := AsUserErrors(err)
	return ok && ue.HasCode(CodeFeatureLimit)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
