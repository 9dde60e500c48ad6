package conn

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// makeBody normalizes the caller-supplied body into a producer that can be
// invoked again if the request has to be resent, plus the content length
// when it is knowable up front (-1 otherwise). Raw readers are accepted but
// cannot be replayed; snapshot-able types can.
func makeBody(body interface{}) (getBody func() (io.ReadCloser, error), contentLength int64, err error) {
	contentLength = -1
	// Concrete snapshot-able types must be matched before the io.Reader
	// interfaces or they would all land in the one-shot arms.
	switch b := body.(type) {
	case nil:
		getBody = func() (io.ReadCloser, error) { return nil, nil }
	case *bytes.Buffer:
		contentLength = int64(b.Len())
		buf := b.Bytes()
		getBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	case *bytes.Reader:
		contentLength = int64(b.Len())
		snapshot := *b
		getBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *strings.Reader:
		contentLength = int64(b.Len())
		snapshot := *b
		getBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case io.ReadCloser:
		var once atomic.Bool
		getBody = func() (io.ReadCloser, error) {
			if once.CompareAndSwap(false, true) {
				return b, nil
			}
			return nil, ErrBodyReplay
		}
	case io.Reader:
		var once atomic.Bool
		getBody = func() (io.ReadCloser, error) {
			if once.CompareAndSwap(false, true) {
				return io.NopCloser(b), nil
			}
			return nil, ErrBodyReplay
		}
	case string:
		contentLength = int64(len(b))
		getBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		contentLength = int64(len(b))
		getBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	default:
		return nil, -1, fmt.Errorf("%w: %T", errUnsupportedBody, body)
	}
	return getBody, contentLength, nil
}
