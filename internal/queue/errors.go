package queue

import "errors"

type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }

func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable marks a handler error as permanent: the job fails immediately
// instead of entering the backoff/retry cycle. Handler errors are retryable
// unless wrapped this way.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsRetryable reports whether a handler error should trigger a retry.
func IsRetryable(err error) bool {
	var nr *nonRetryableError
	return !errors.As(err, &nr)
}
