package apex

import "errors"

var (
	// ErrAuth indicates the device login response could not be parsed.
	// Login failures are not retried; the caller's operation aborts.
	ErrAuth = errors.New("apex: authentication failed")
	// ErrSchema indicates a log or status payload did not match the
	// expected shape. The whole response is rejected.
	ErrSchema = errors.New("apex: malformed device response")
)
