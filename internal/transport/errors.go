package transport

import "errors"

var (
	// ErrMalformedResponse reports a response that violates HTTP/1.1 framing:
	// a bad status line, a field line without a colon, conflicting
	// Content-Length fields, or broken chunk framing.
	ErrMalformedResponse = errors.New("httpc: malformed response")

	// ErrTruncatedResponse reports a stream that ended before the announced
	// body length was delivered.
	ErrTruncatedResponse = errors.New("httpc: truncated response")
)
