// services/retry.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/seqlab/amrsync/logger"
)

// PermanentError marks a failure that must not be retried: the remote side
// already delivered, and the local condition will not improve on its own.
// The retry combinator stops immediately and the orchestrator escalates it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so retryWithDelay gives up on it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// retryWithDelay runs op up to attempts times with a fixed sleep between
// tries. No exponential backoff: request volume is low and the remote is
// either back or it is not. Returns nil on the first success; a permanent
// error aborts the loop and is returned as-is.
func retryWithDelay(attempts int, delay time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return err
		}
		lastErr = err
		logger.WithField("attempt", attempt).Warnf("Service: attempt failed: %v", err)
		if attempt < attempts {
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
