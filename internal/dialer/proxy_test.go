package dialer

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport"
)

// scriptConn plays back canned segments on Read, one segment per call, the
// way a real socket delivers whatever has arrived so far.
type scriptConn struct {
	segments [][]byte
	out      bytes.Buffer
	writeErr error
	closed   bool
}

func (c *scriptConn) Read(p []byte) (int, error) {
	if len(c.segments) == 0 {
		return 0, io.EOF
	}
	seg := c.segments[0]
	n := copy(p, seg)
	if n == len(seg) {
		c.segments = c.segments[1:]
	} else {
		c.segments[0] = seg[n:]
	}
	return n, nil
}

func (c *scriptConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.out.Write(p)
}

func (c *scriptConn) Close() error {
	c.closed = true
	return nil
}

func (c *scriptConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *scriptConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (c *scriptConn) SetDeadline(t time.Time) error      { return nil }
func (c *scriptConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *scriptConn) SetWriteDeadline(t time.Time) error { return nil }

func TestTunnelEstablished(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 200 Connection established\r\n\r\n"),
	}}
	ph := header.New()
	ph.Append("Proxy-Authorization", "hello")

	if err := Tunnel(sc, "1.2.3.4", "443", ph, time.Time{}); err != nil {
		t.Fatal(err)
	}
	want := "CONNECT 1.2.3.4:443 HTTP/1.0\r\n" +
		"Host: 1.2.3.4\r\n" +
		"Proxy-Authorization: hello\r\n" +
		"accept-encoding: identity\r\n" +
		"\r\n"
	if sc.out.String() != want {
		t.Errorf("CONNECT request:\n%q\nwant:\n%q", sc.out.String(), want)
	}
	if sc.closed {
		t.Error("transport closed after successful tunnel")
	}
}

func TestTunnelNoProxyHeaders(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{[]byte("HTTP/1.1 200 OK\r\n\r\n")}}
	if err := Tunnel(sc, "1.2.3.4", "443", nil, time.Time{}); err != nil {
		t.Fatal(err)
	}
	want := "CONNECT 1.2.3.4:443 HTTP/1.0\r\n" +
		"Host: 1.2.3.4\r\n" +
		"accept-encoding: identity\r\n" +
		"\r\n"
	if sc.out.String() != want {
		t.Errorf("CONNECT request:\n%q\nwant:\n%q", sc.out.String(), want)
	}
}

func TestTunnelRejected(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 407 Proxy Authentication Required\r\n\r\n"),
	}}
	err := Tunnel(sc, "1.2.3.4", "443", nil, time.Time{})
	var pce *ProxyConnectError
	if !errors.As(err, &pce) {
		t.Fatalf("err = %v, want *ProxyConnectError", err)
	}
	if pce.StatusCode != 407 || pce.Reason != "Proxy Authentication Required" {
		t.Errorf("error carries %d %q", pce.StatusCode, pce.Reason)
	}
	if !sc.closed {
		t.Error("transport left open after rejected tunnel")
	}
}

func TestTunnelRejectedDrainsBody(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 502 Bad Gateway\r\nContent-Length: 7\r\n\r\n"),
		[]byte("go away"),
	}}
	err := Tunnel(sc, "1.2.3.4", "443", nil, time.Time{})
	var pce *ProxyConnectError
	if !errors.As(err, &pce) || pce.StatusCode != 502 {
		t.Fatalf("err = %v, want 502 ProxyConnectError", err)
	}
	if len(sc.segments) != 0 {
		t.Error("rejection body left on the socket")
	}
}

func TestTunnelGarbageAfterResponse(t *testing.T) {
	// bytes from the "target" arriving in the same segment as the proxy's
	// reply cannot be attributed to anyone; treat as malformed
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\n\r\nsneaky"),
	}}
	err := Tunnel(sc, "1.2.3.4", "443", nil, time.Time{})
	if !errors.Is(err, transport.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
	if !sc.closed {
		t.Error("transport left open")
	}
}

func TestTunnelMalformedReply(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{[]byte("NOT HTTP\r\n\r\n")}}
	err := Tunnel(sc, "1.2.3.4", "443", nil, time.Time{})
	if !errors.Is(err, transport.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
	if !sc.closed {
		t.Error("transport left open")
	}
}
