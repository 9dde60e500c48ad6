package transport

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/wirehttp/httpc/internal/header"
)

func mkHeader(pairs ...string) *header.Header {
	h := header.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Append(pairs[i], pairs[i+1])
	}
	return h
}

func TestSelectStrategy(t *testing.T) {
	cases := map[string]struct {
		method string
		code   int
		hdr    *header.Header
		want   StrategyKind
		length int64
	}{
		"Head":                {"HEAD", 200, mkHeader("Content-Length", "10"), NoBody, 0},
		"NoContent":           {"GET", 204, mkHeader(), NoBody, 0},
		"NotModified":         {"GET", 304, mkHeader("Content-Length", "10"), NoBody, 0},
		"Informational":       {"GET", 100, mkHeader(), NoBody, 0},
		"Chunked":             {"GET", 200, mkHeader("Transfer-Encoding", "chunked"), Chunked, 0},
		"ChunkedCased":        {"GET", 200, mkHeader("Transfer-Encoding", "Chunked"), Chunked, 0},
		"ChunkedInList":       {"GET", 200, mkHeader("Transfer-Encoding", "gzip, chunked"), Chunked, 0},
		"ChunkedBeatsLength":  {"GET", 200, mkHeader("Transfer-Encoding", "chunked", "Content-Length", "10"), Chunked, 0},
		"ContentLength":       {"GET", 200, mkHeader("Content-Length", "42"), ContentLength, 42},
		"DuplicateSameLength": {"GET", 200, mkHeader("Content-Length", "7", "Content-Length", "7"), ContentLength, 7},
		"BadLengthIgnored":    {"GET", 200, mkHeader("Content-Length", "banana"), CloseDelimited, 0},
		"NoFraming":           {"GET", 200, mkHeader(), CloseDelimited, 0},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := SelectStrategy(c.method, Status{Proto: "HTTP/1.1", Code: c.code}, c.hdr)
			if err != nil {
				t.Fatal(err)
			}
			if s.Kind != c.want || s.Length != c.length {
				t.Errorf("strategy = %v/%d, want %v/%d", s.Kind, s.Length, c.want, c.length)
			}
		})
	}
}

func TestSelectStrategyConflictingLengths(t *testing.T) {
	hdr := mkHeader("Content-Length", "7", "Content-Length", "8")
	_, err := SelectStrategy("GET", Status{Proto: "HTTP/1.1", Code: 200}, hdr)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func body(wire string, s Strategy) io.Reader {
	return NewBodyReader(bufio.NewReader(strings.NewReader(wire)), s)
}

func TestLengthBody(t *testing.T) {
	r := body("1234567890EXTRA", Strategy{Kind: ContentLength, Length: 10})
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "1234567890" {
		t.Errorf("body = %q", got)
	}
	// exhausted reader stays exhausted
	if n, err := r.Read(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Errorf("read after drain = %d, %v", n, err)
	}
}

func TestLengthBodyTruncated(t *testing.T) {
	r := body("1234", Strategy{Kind: ContentLength, Length: 10})
	_, err := io.ReadAll(r)
	if !errors.Is(err, ErrTruncatedResponse) {
		t.Errorf("err = %v, want ErrTruncatedResponse", err)
	}
}

func TestCloseDelimitedBody(t *testing.T) {
	r := body("anything until EOF", Strategy{Kind: CloseDelimited})
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "anything until EOF" {
		t.Errorf("body = %q", got)
	}
}

func TestChunkedBodyErrorMapping(t *testing.T) {
	if _, err := io.ReadAll(body("zz\r\n", Strategy{Kind: Chunked})); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("bad size line: err = %v, want ErrMalformedResponse", err)
	}
	if _, err := io.ReadAll(body("5\r\nhe", Strategy{Kind: Chunked})); !errors.Is(err, ErrTruncatedResponse) {
		t.Errorf("short chunk: err = %v, want ErrTruncatedResponse", err)
	}
	got, err := io.ReadAll(body("5\r\nhello\r\n0\r\n\r\n", Strategy{Kind: Chunked}))
	if err != nil || string(got) != "hello" {
		t.Errorf("good chunked body = %q, %v", got, err)
	}
}

func TestNoBody(t *testing.T) {
	got, err := io.ReadAll(body("leftover", Strategy{Kind: NoBody}))
	if err != nil || len(got) != 0 {
		t.Errorf("NoBody read = %q, %v", got, err)
	}
}
