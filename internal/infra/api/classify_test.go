package api

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		failure Failure
		expect  ErrorKind
	}{
		{"401 unauthorized", Failure{Status: 401}, KindAuth},
		{"403 forbidden", Failure{Status: 403}, KindAuth},
		{"400 bad request", Failure{Status: 400}, KindValidation},
		{"422 unprocessable", Failure{Status: 422}, KindValidation},
		{"404 not found", Failure{Status: 404}, KindNotFound},
		{"429 rate limited", Failure{Status: 429}, KindRateLimit},
		{"502 bad gateway", Failure{Status: 502}, KindServer},
		{"503 unavailable", Failure{Status: 503}, KindServer},
		{"500 internal", Failure{Status: 500}, KindServer},
		{"504 gateway timeout", Failure{Status: 504}, KindServer},
		{"connection reset", Failure{Err: errors.New("read tcp: connection reset by peer")}, KindNetwork},
		{"dns failure", Failure{Err: &net.OpError{Op: "dial", Err: errors.New("no such host")}}, KindNetwork},
		{"client timeout", Failure{Err: context.DeadlineExceeded}, KindTimeout},
		{"net timeout", Failure{Err: fakeTimeoutErr{}}, KindTimeout},
		{"teapot", Failure{Status: 418}, KindUnknown},
		{"empty failure", Failure{}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.failure)
			if got != tt.expect {
				t.Errorf("Classify(%+v) = %v, want %v", tt.failure, got, tt.expect)
			}
			// Classification is pure: the same input always yields the same kind.
			if again := Classify(tt.failure); again != got {
				t.Errorf("Classify not idempotent: %v then %v", got, again)
			}
		})
	}
}

func TestKindPolicies(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{KindAuth, false},
		{KindValidation, false},
		{KindNotFound, false},
		{KindRateLimit, true},
		{KindServer, true},
		{KindNetwork, true},
		{KindTimeout, true},
		{KindUnknown, true},
	}

	for _, tt := range tests {
		if got := tt.kind.Retryable(); got != tt.retryable {
			t.Errorf("%s.Retryable() = %v, want %v", tt.kind, got, tt.retryable)
		}
		if tt.kind.Label() == "" {
			t.Errorf("%s has no user-facing label", tt.kind)
		}
	}

	if d := KindRateLimit.FixedDelay(); d != 5*time.Second {
		t.Errorf("RATE_LIMIT fixed delay = %v, want 5s", d)
	}
}

func TestTransportRetryEligibility(t *testing.T) {
	// Only 502/503 are auto-retried by the transport; other retryable kinds
	// are left to the UI layer.
	tests := []struct {
		status int
		want   bool
	}{
		{502, true},
		{503, true},
		{500, false},
		{429, false},
		{401, false},
		{0, false},
	}

	for _, tt := range tests {
		e := &Error{Kind: Classify(Failure{Status: tt.status}), Status: tt.status}
		if got := e.TransportRetry(); got != tt.want {
			t.Errorf("TransportRetry for status %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}
