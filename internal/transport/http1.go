// Package transport implements the HTTP/1.1 message framing layer: request
// serialization, status line and header block parsing, and body decoding for
// the three delimiting strategies (Content-Length, chunked, close-delimited).
// Everything here is stateless with respect to the connection; callers own
// the stream and its buffering.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport/chunked"
)

// Status is the parsed first line of a response.
type Status struct {
	Proto  string // "HTTP/1.1"
	Code   int
	Reason string
}

// ProtoAtLeast reports whether the response protocol is at least
// major.minor. Unparseable versions compare as 0.9.
func (s Status) ProtoAtLeast(major, minor int) bool {
	maj, min := 0, 9
	if v, ok := strings.CutPrefix(s.Proto, "HTTP/"); ok {
		if a, b, ok := strings.Cut(v, "."); ok {
			if pa, err := strconv.Atoi(a); err == nil {
				if pb, err := strconv.Atoi(b); err == nil {
					maj, min = pa, pb
				}
			}
		}
	}
	return maj > major || (maj == major && min >= minor)
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// ReadStatus parses the status line and the header block terminated by a
// blank line. Repeated field names keep their order; folded continuation
// lines are joined onto the previous field's value.
func ReadStatus(br *bufio.Reader) (Status, *header.Header, error) {
	line, err := readLine(br)
	if err != nil {
		return Status{}, nil, err
	}
	st, err := parseStatusLine(line)
	if err != nil {
		return Status{}, nil, err
	}

	hdr := header.New()
	var pendingName, pendingValue string
	flush := func() {
		if pendingName != "" {
			hdr.Append(pendingName, pendingValue)
			pendingName = ""
		}
	}
	for {
		line, err := readLine(br)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return st, nil, err
		}
		if line == "" {
			flush()
			return st, hdr, nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			// obs-fold continuation of the previous field
			if pendingName == "" {
				return st, nil, fmt.Errorf("%w: continuation line before any field", ErrMalformedResponse)
			}
			pendingValue += " " + strings.TrimLeft(line, " \t")
			continue
		}
		flush()
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return st, nil, fmt.Errorf("%w: field line without colon: %q", ErrMalformedResponse, line)
		}
		if name == "" || strings.ContainsAny(name, " \t") {
			return st, nil, fmt.Errorf("%w: bad field name: %q", ErrMalformedResponse, name)
		}
		pendingName, pendingValue = name, strings.TrimSpace(value)
	}
}

func parseStatusLine(line string) (Status, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return Status{}, fmt.Errorf("%w: bad status line: %q", ErrMalformedResponse, line)
	}
	code, reason, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if len(code) != 3 {
		return Status{}, fmt.Errorf("%w: bad status code: %q", ErrMalformedResponse, code)
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 {
		return Status{}, fmt.Errorf("%w: bad status code: %q", ErrMalformedResponse, code)
	}
	return Status{Proto: proto, Code: n, Reason: reason}, nil
}

// Request is a wire-level request frame. Target carries the final
// request-target form (origin-form or absolute-form); the caller decides
// which based on its proxy configuration.
type Request struct {
	Method string
	Target string
	Proto  string // defaults to HTTP/1.1
	Host   string // Host field value, omitted when empty

	Header        *header.Header
	ContentLength int64 // -1 when unknown
	Chunked       bool  // encode Body with the chunked coding

	Body io.Reader
}

// WriteRequest serializes r to w: request line, Host, framing fields, caller
// headers in their stored order, blank line, then the body.
func WriteRequest(w io.Writer, r *Request) error {
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(r.Method)
	bw.WriteByte(' ')
	bw.WriteString(r.Target)
	bw.WriteByte(' ')
	bw.WriteString(proto)
	bw.WriteString("\r\n")
	if r.Host != "" {
		bw.WriteString("Host: ")
		bw.WriteString(r.Host)
		bw.WriteString("\r\n")
	}
	if r.ContentLength >= 0 {
		bw.WriteString("Content-Length: ")
		bw.WriteString(strconv.FormatInt(r.ContentLength, 10))
		bw.WriteString("\r\n")
	} else if r.Chunked {
		bw.WriteString("Transfer-Encoding: chunked\r\n")
	}
	if err := r.Header.Write(bw); err != nil {
		return err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if r.Body == nil {
		return nil
	}
	if r.Chunked && r.ContentLength < 0 {
		cw := chunked.NewWriter(w)
		if _, err := io.Copy(cw, r.Body); err != nil {
			return err
		}
		return cw.Close()
	}
	_, err := io.Copy(w, r.Body)
	return err
}
