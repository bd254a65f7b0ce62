package api

import (
	"context"
	"errors"
	"net"
)

// Failure is the raw input to classification: an HTTP status code if a
// response arrived, and/or the transport-level error if one did not.
type Failure struct {
	Status int
	Err    error
}

// Classify maps a failure into the closed ErrorKind taxonomy. It is a pure
// total function: every input yields exactly one kind, and re-classifying
// the same input yields the same kind.
func Classify(f Failure) ErrorKind {
	if f.Err != nil && f.Status == 0 {
		if isTimeout(f.Err) {
			return KindTimeout
		}
		return KindNetwork
	}

	switch f.Status {
	case 401, 403:
		return KindAuth
	case 400, 422:
		return KindValidation
	case 404:
		return KindNotFound
	case 429:
		return KindRateLimit
	case 502, 503:
		return KindServer
	}

	if f.Status >= 500 {
		return KindServer
	}

	return KindUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
