package groq

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"
)

// TransientError is a retryable call failure: rate limiting, server errors,
// or network timeouts.
type TransientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient call error: %v", e.Err)
	}
	return fmt.Sprintf("transient call error: status %d: %s", e.StatusCode, e.Message)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a non-retryable call failure: bad credentials or an
// invalid request. It fails the chunk immediately.
type PermanentError struct {
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent call error: status %d: %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Backoff returns the wait before retry attempt n (0-indexed): exponential
// with jitter, capped at 30 seconds.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// classifyStatus maps an HTTP status to the error taxonomy.
func classifyStatus(status int, body string) error {
	if status == 429 || status >= 500 {
		return &TransientError{StatusCode: status, Message: body}
	}
	return &PermanentError{StatusCode: status, Message: body}
}
