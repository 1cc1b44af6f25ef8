package indexing

import (
	"context"
	"errors"
	"net"
)

// ErrResourceExhausted is returned by a Writer when the index is rejecting
// requests for capacity reasons (HTTP 429).
var ErrResourceExhausted = errors.New("index resource exhausted")

// IsTransient reports whether a submission error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrResourceExhausted) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
