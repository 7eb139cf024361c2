package remote

import "errors"

var (
	// ErrUnavailable covers transport failures and 5xx responses. Work
	// failing this way is simply retried on the next sync trigger.
	ErrUnavailable = errors.New("server unavailable")

	// ErrRejected covers validation, conflict and authorization rejections
	// (4xx-class). Non-retryable: the action keeps the error for visibility
	// instead of looping forever.
	ErrRejected = errors.New("rejected by server")

	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// IsRetryable reports whether a failed remote call may succeed if repeated
// unchanged on a later sync.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
