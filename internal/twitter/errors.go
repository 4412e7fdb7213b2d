package twitter

import (
	"errors"
	"fmt"
)

// Upstream failures split into two kinds: transient ones (network faults,
// 5xx, 429) are worth retrying; permanent ones (4xx, malformed payloads)
// are not and short-circuit any retry loop.
var (
	ErrTransientUpstream = errors.New("transient upstream error")
	ErrPermanentUpstream = errors.New("permanent upstream error")
)

func transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransientUpstream, fmt.Sprintf(format, args...))
}

func permanentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanentUpstream, fmt.Sprintf(format, args...))
}

func IsPermanentUpstream(err error) bool {
	return errors.Is(err, ErrPermanentUpstream)
}

// ExhaustedError reports a retried operation that never succeeded.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
