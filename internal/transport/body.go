package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport/chunked"
)

type StrategyKind int

const (
	// NoBody means the message has no body regardless of framing fields
	// (HEAD responses, 1xx, 204, 304).
	NoBody StrategyKind = iota
	// ContentLength means exactly Strategy.Length body bytes follow.
	ContentLength
	// Chunked means the body uses the chunked transfer coding.
	Chunked
	// CloseDelimited means the body runs until the peer closes the stream.
	CloseDelimited
)

func (k StrategyKind) String() string {
	switch k {
	case NoBody:
		return "none"
	case ContentLength:
		return "content-length"
	case Chunked:
		return "chunked"
	case CloseDelimited:
		return "close-delimited"
	}
	return "unknown"
}

type Strategy struct {
	Kind   StrategyKind
	Length int64
}

// SelectStrategy decides how the response body is delimited, in priority
// order: no-body statuses, chunked transfer coding, Content-Length, and
// finally close-delimited when nothing else applies.
func SelectStrategy(method string, st Status, hdr *header.Header) (Strategy, error) {
	if method == "HEAD" || st.Code/100 == 1 || st.Code == 204 || st.Code == 304 {
		return Strategy{Kind: NoBody}, nil
	}
	for _, te := range hdr.Values("Transfer-Encoding") {
		for _, coding := range strings.Split(te, ",") {
			if strings.EqualFold(strings.TrimSpace(coding), "chunked") {
				return Strategy{Kind: Chunked}, nil
			}
		}
	}
	if n, ok, err := contentLength(hdr); err != nil {
		return Strategy{}, err
	} else if ok {
		return Strategy{Kind: ContentLength, Length: n}, nil
	}
	return Strategy{Kind: CloseDelimited}, nil
}

// contentLength extracts a usable Content-Length. Multiple fields must agree
// (request-smuggling hardening, same rule the standard library applies); a
// value that does not parse is treated as absent rather than fatal.
func contentLength(hdr *header.Header) (int64, bool, error) {
	vv := hdr.Values("Content-Length")
	if len(vv) == 0 {
		return 0, false, nil
	}
	first := strings.TrimSpace(vv[0])
	for _, v := range vv[1:] {
		if strings.TrimSpace(v) != first {
			return 0, false, fmt.Errorf("%w: conflicting Content-Length fields %q", ErrMalformedResponse, vv)
		}
	}
	n, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return 0, false, nil
	}
	return int64(n), true, nil
}

// NewBodyReader returns the lazy body stream for s over br. The reader is
// finite for every strategy except CloseDelimited on a peer that never
// closes; it is not restartable.
func NewBodyReader(br *bufio.Reader, s Strategy) io.Reader {
	switch s.Kind {
	case NoBody:
		return eofReader{}
	case ContentLength:
		return &lengthReader{r: br, remain: s.Length}
	case Chunked:
		return &chunkedBody{r: chunked.NewReader(br)}
	default:
		return &closeDelimitedReader{r: br}
	}
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

type lengthReader struct {
	r      io.Reader
	remain int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remain {
		p = p[:l.remain]
	}
	n, err := l.r.Read(p)
	l.remain -= int64(n)
	if err == io.EOF && l.remain > 0 {
		err = fmt.Errorf("%w: %d bytes short of Content-Length", ErrTruncatedResponse, l.remain)
	}
	if err == io.EOF {
		err = nil
	}
	if err == nil && l.remain == 0 {
		return n, io.EOF
	}
	return n, err
}

// chunkedBody maps the chunked decoder's errors onto the framing taxonomy:
// an unexpected end of stream is a truncation, everything else is a framing
// violation.
type chunkedBody struct {
	r io.Reader
}

func (c *chunkedBody) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	switch {
	case err == nil || err == io.EOF:
	case errors.Is(err, io.ErrUnexpectedEOF):
		err = fmt.Errorf("%w: stream ended mid-chunk", ErrTruncatedResponse)
	default:
		err = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return n, err
}

// closeDelimitedReader yields bytes until end of stream. An EOF, clean or
// reset-mapped by the caller's transport, is the terminator by definition.
type closeDelimitedReader struct {
	r io.Reader
}

func (c *closeDelimitedReader) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
