package conn

import (
	"io"

	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport"
)

// Response is one parsed response with its body still on the wire. Status,
// reason and headers are available immediately; the body is a pull-based
// stream that delivers each byte once. Draining it (or calling Close) is
// what returns the owning Connection to service.
type Response struct {
	StatusCode int
	Reason     string
	Proto      string
	Header     *header.Header

	conn      *Connection
	strategy  transport.Strategy
	body      io.Reader
	willClose bool
	done      bool
}

// BodyStrategy exposes how the body is delimited, mostly for callers that
// want to know whether reuse is possible before draining.
func (r *Response) BodyStrategy() transport.Strategy { return r.strategy }

// Read delivers up to len(p) body bytes. It returns io.EOF once the body is
// exhausted, at which point the Connection has already been released for
// the next request (or torn down, for close-delimited bodies).
func (r *Response) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	n, err := r.body.Read(p)
	switch err {
	case nil:
	case io.EOF:
		r.done = true
		r.conn.exchangeDone(r.willClose)
	default:
		// Truncated or malformed framing leaves the protocol state
		// indeterminate; the transport must not be reused.
		r.done = true
		r.conn.markBroken(err)
	}
	return n, err
}

// Close abandons whatever body remains. Bounded bodies are skipped to their
// end so the transport stays usable; a close-delimited body just tears the
// transport down. Safe to call after a full drain.
func (r *Response) Close() error {
	if r.done {
		return nil
	}
	if r.strategy.Kind == transport.ContentLength || r.strategy.Kind == transport.Chunked {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	r.done = true
	r.conn.exchangeDone(true)
	return nil
}

// finish marks a body-less response as consumed.
func (r *Response) finish() {
	r.done = true
	r.conn.exchangeDone(r.willClose)
}
