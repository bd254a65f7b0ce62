package api

import (
	"fmt"
	"time"
)

// ErrorKind is the closed taxonomy of request failures. Every failure the
// client surfaces maps to exactly one kind; the kind decides whether the
// transport retries automatically and whether the UI may offer a manual retry.
type ErrorKind string

const (
	KindAuth       ErrorKind = "AUTH"
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindRateLimit  ErrorKind = "RATE_LIMIT"
	KindServer     ErrorKind = "SERVER"
	KindNetwork    ErrorKind = "NETWORK"
	KindTimeout    ErrorKind = "TIMEOUT"
	KindUnknown    ErrorKind = "UNKNOWN"
)

// kindPolicy holds the per-kind retry policy.
type kindPolicy struct {
	label      string
	retryable  bool
	fixedDelay time.Duration
}

// policies is the single source of truth for both the transport-level
// auto-retry decision and the UI-level retry affordance.
var policies = map[ErrorKind]kindPolicy{
	KindAuth:       {label: "Not authorized", retryable: false},
	KindValidation: {label: "Invalid request", retryable: false},
	KindNotFound:   {label: "Not found", retryable: false},
	KindRateLimit:  {label: "Too many requests", retryable: true, fixedDelay: 5 * time.Second},
	KindServer:     {label: "Server error", retryable: true},
	KindNetwork:    {label: "Connection problem", retryable: true},
	KindTimeout:    {label: "Request timed out", retryable: true},
	KindUnknown:    {label: "Something went wrong", retryable: true},
}

// Label returns the user-facing label for the kind.
func (k ErrorKind) Label() string {
	if p, ok := policies[k]; ok {
		return p.label
	}
	return policies[KindUnknown].label
}

// Retryable reports whether the kind may be retried at all (including the
// UI-level manual retry affordance).
func (k ErrorKind) Retryable() bool {
	return policies[k].retryable
}

// FixedDelay returns the fixed retry delay for the kind, or zero when the
// delay is computed (exponential) or left to the UI.
func (k ErrorKind) FixedDelay() time.Duration {
	return policies[k].fixedDelay
}

// Error is a classified request failure. It always carries a correlation id
// so a user can report the failure without access to server logs.
type Error struct {
	Kind          ErrorKind
	Status        int // HTTP status, 0 when the request never got a response
	CorrelationID string
	RetryAfter    time.Duration // populated for RATE_LIMIT
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (http %d) [%s]: %s", e.Kind, e.Status, e.CorrelationID, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.CorrelationID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may offer a manual retry.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// TransportRetry reports whether the client itself auto-retries this failure.
// Only 502/503 are transport-retry eligible; everything else, including other
// 5xx, is left to the UI layer.
func (e *Error) TransportRetry() bool {
	return e.Status == 502 || e.Status == 503
}
