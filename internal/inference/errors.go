package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind separates failures worth retrying by the user from contract mismatches.
type Kind int

const (
	// Transient covers network errors, timeouts, throttling and 5xx responses.
	Transient Kind = iota
	// Permanent covers other 4xx responses and bodies that do not match the expected shape.
	Permanent
)

func (k Kind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

// Error is the failure variant returned by every remote inference client.
type Error struct {
	Capability string
	Kind       Kind
	Status     int
	Err        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", e.Capability, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Capability, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusKind classifies an HTTP status code.
func StatusKind(status int) Kind {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return Transient
	default:
		return Permanent
	}
}

// NewStatusError builds an Error for a non-2xx response.
func NewStatusError(capability string, status int, body string) *Error {
	return &Error{
		Capability: capability,
		Kind:       StatusKind(status),
		Status:     status,
		Err:        fmt.Errorf("unexpected status: %s", body),
	}
}

// NewTransportError builds an Error for a request that never produced a response.
func NewTransportError(capability string, err error) *Error {
	return &Error{Capability: capability, Kind: transportKind(err), Err: err}
}

// NewShapeError builds an Error for a response that does not match the contract.
func NewShapeError(capability string, err error) *Error {
	return &Error{Capability: capability, Kind: Permanent, Err: err}
}

func transportKind(err error) Kind {
	// A caller that went away will not come back for the answer.
	if errors.Is(err, context.Canceled) {
		return Permanent
	}
	// Timeouts, DNS failures, refused or reset connections.
	return Transient
}

// KindOf reports the failure kind of err. Errors that are not *Error count as permanent.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return Permanent
}

// IsTransient reports whether err is a transient inference failure.
func IsTransient(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Kind == Transient
}
