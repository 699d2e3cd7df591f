package publisher

import (
	"errors"
	"fmt"
)

var ErrAlreadyStarted = errors.New("publisher already started")

// ConfigurationError reports an unusable publisher setup. It is returned by
// New only; a publisher that was built never fails on configuration later.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("publisher config: %s %s", e.Field, e.Reason)
}

// SendError wraps a failed delivery. Delivery is best effort: the error is
// logged and counted, never returned to the timer and never retried.
type SendError struct {
	Publisher string
	Frame     []byte
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: send %d byte frame: %v", e.Publisher, len(e.Frame), e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
