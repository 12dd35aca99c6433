package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes transport failures.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindStatus    ErrorKind = "status"
	KindThrottled ErrorKind = "throttled"
	KindGraphQL   ErrorKind = "graphql"
	KindDecode    ErrorKind = "decode"
	KindEncode    ErrorKind = "encode"
)

// GraphQLError is one entry of a response's top-level errors list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, if any.
func (e GraphQLError) Code() string {
	if c, ok := e.Extensions["code"].(string); ok {
		return c
	}
	return ""
}

// Error is a transport-level failure: the call produced no usable result.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	GraphQL []GraphQLError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("shopify ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	switch {
	case len(e.GraphQL) > 0:
		msgs := make([]string, len(e.GraphQL))
		for i, g := range e.GraphQL {
			msgs[i] = g.Message
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(msgs, "; "))
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsThrottled reports whether err is a throttling failure.
func IsThrottled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindThrottled
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == 401 || e.Status == 403)
}
