// Package provider defines the failure taxonomy shared by all upstream data providers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pollwatch/pollwatch/internal/provider/resilience"
)

// Kind is the coarse category of a failed fetch.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindTimeout      Kind = "timeout"
	KindConnection   Kind = "connection"
	KindOther        Kind = "other"
)

// Common causes wrapped by Error.
var (
	ErrIncompleteResponse = errors.New("response is missing expected fields")
	ErrNoData             = errors.New("no data for target")
)

// Error is returned by every provider call that fails. The loop prints it and carries on.
type Error struct {
	// Provider is the name of the upstream that failed.
	Provider string

	// Kind is the failure category.
	Kind Kind

	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind.
func NewError(providerName string, kind Kind, err error) *Error {
	return &Error{Provider: providerName, Kind: kind, Err: err}
}

// FromStatus classifies a non-2xx HTTP status. detail is the upstream message, if any.
func FromStatus(providerName string, statusCode int, detail string) *Error {
	kind := KindOther
	switch statusCode {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = KindTimeout
	}

	var cause error
	if detail != "" {
		cause = errors.New(detail)
	} else {
		cause = fmt.Errorf("unexpected status: %s", http.StatusText(statusCode))
	}

	return &Error{Provider: providerName, Kind: kind, StatusCode: statusCode, Err: cause}
}

// FromTransport classifies an error returned while executing a request.
func FromTransport(providerName string, err error) *Error {
	return &Error{Provider: providerName, Kind: classifyTransport(err), Err: err}
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return KindConnection
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return KindConnection
	}

	return KindOther
}

// KindOf returns the Kind of err, or KindOther when err is not a provider Error.
func KindOf(err error) Kind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return KindOther
}

// IsProviderError reports whether err belongs to the fetch taxonomy.
func IsProviderError(err error) bool {
	var pErr *Error
	return errors.As(err, &pErr)
}
