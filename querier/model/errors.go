package model

import (
	"fmt"
	"strings"
)

// ConfigError means the datasource configuration itself is broken. It is
// raised before any network I/O happens.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("datasource config: %s %s", e.Field, e.Reason)
}

// AuthError is a 401/403 from the backend, kept distinct from other
// non-2xx responses so callers can tell credentials from queries.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: status %d", e.Status)
}

// QueryError is any other non-2xx backend response.
type QueryError struct {
	Status int
	Body   string
}

func (e *QueryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("query failed: status %d", e.Status)
	}
	return fmt.Sprintf("query failed: status %d: %s", e.Status, e.Body)
}

// TransportError wraps a failed network call with the name of the operation
// that failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError covers request payloads and response bodies the adapter could
// not decode. Row-level malformations are not ParseErrors, those rows are
// dropped during normalization.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedSignalError names the requested signal and the set the
// datasource actually supports.
type UnsupportedSignalError struct {
	Signal string
	Valid  []string
}

func (e *UnsupportedSignalError) Error() string {
	return fmt.Sprintf("unsupported signal %q, expected one of: %s",
		e.Signal, strings.Join(e.Valid, ", "))
}

// PollTerminalError is returned when an asynchronous backend query lands in
// a terminal non-success state.
type PollTerminalError struct {
	State string
}

func (e *PollTerminalError) Error() string {
	return fmt.Sprintf("query finished in state %s", e.State)
}

// NotFoundError is returned for lookups of datasources that were never
// provisioned.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("datasource %q not found", e.Name)
}
