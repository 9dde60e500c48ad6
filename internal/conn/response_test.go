package conn

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartialReads(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{respond("some response bytes")}}
	d := &scriptDialer{conns: []*scriptConn{sc}}
	c, err := New("example.com:80", WithDialer(d))
	require.NoError(t, err)

	require.NoError(t, c.Request(context.Background(), "GET", "/", nil, nil))
	resp, err := c.GetResponse()
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := io.ReadFull(resp, buf)
	require.NoError(t, err)
	require.Equal(t, "some", string(buf[:n]))

	rest, err := io.ReadAll(resp)
	require.NoError(t, err)
	require.Equal(t, " response bytes", string(rest))

	n, err = resp.Read(buf)
	require.Equal(t, 0, n)
	require.Equal(t, io.EOF, err)
	require.Equal(t, StateIdle, c.State())
}

func TestHeadResponseHasNoBody(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n"),
		respond("real body"),
	}}
	d := &scriptDialer{conns: []*scriptConn{sc}}
	c, err := New("example.com:80", WithDialer(d))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Request(ctx, "HEAD", "/", nil, nil))
	resp, err := c.GetResponse()
	require.NoError(t, err)
	v, _ := resp.Header.Get("Content-Length")
	require.Equal(t, "10", v, "framing headers stay visible")

	body, err := io.ReadAll(resp)
	require.NoError(t, err)
	require.Empty(t, body)
	require.Equal(t, StateIdle, c.State(), "HEAD releases the connection immediately")

	// the announced 10 bytes were never sent; the next exchange must not
	// see phantom body bytes
	require.NoError(t, c.Request(ctx, "GET", "/", nil, nil))
	resp, err = c.GetResponse()
	require.NoError(t, err)
	got, _ := io.ReadAll(resp)
	require.Equal(t, "real body", string(got))
	require.Len(t, d.addrs, 1)
}

func TestCloseSkipsRemainingBody(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		respond("0123456789"),
		respond("next"),
	}}
	d := &scriptDialer{conns: []*scriptConn{sc}}
	c, err := New("example.com:80", WithDialer(d))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Request(ctx, "GET", "/", nil, nil))
	resp, err := c.GetResponse()
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = resp.Read(buf)
	require.NoError(t, err)
	require.NoError(t, resp.Close(), "abandoning the body skips to its end")
	require.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Request(ctx, "GET", "/", nil, nil))
	resp, err = c.GetResponse()
	require.NoError(t, err)
	got, _ := io.ReadAll(resp)
	require.Equal(t, "next", string(got))
	require.Len(t, d.addrs, 1)
}

func TestCloseOnCloseDelimitedTearsDown(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\n\r\nendless..."),
	}}
	d := &scriptDialer{conns: []*scriptConn{sc}}
	c, err := New("example.com:80", WithDialer(d))
	require.NoError(t, err)

	require.NoError(t, c.Request(context.Background(), "GET", "/", nil, nil))
	resp, err := c.GetResponse()
	require.NoError(t, err)
	require.NoError(t, resp.Close())
	require.True(t, sc.closed)
	require.Equal(t, StateUnconnected, c.State())
}

func TestCloseAfterDrainIsNoop(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{respond("ok")}}
	d := &scriptDialer{conns: []*scriptConn{sc}}
	c, err := New("example.com:80", WithDialer(d))
	require.NoError(t, err)

	require.NoError(t, c.Request(context.Background(), "GET", "/", nil, nil))
	resp, err := c.GetResponse()
	require.NoError(t, err)
	io.Copy(io.Discard, resp)
	require.NoError(t, resp.Close())
	require.NoError(t, resp.Close())
	require.Equal(t, StateIdle, c.State())
}

func TestChunkedResponseBody(t *testing.T) {
	sc := &scriptConn{segments: [][]byte{
		[]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"3\r\nfoo\r\n4\r\nbarb\r\n2\r\naz\r\n0\r\n\r\n"),
		respond("after"),
	}}
	d := &scriptDialer{conns: []*scriptConn{sc}}
	c, err := New("example.com:80", WithDialer(d))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Request(ctx, "GET", "/", nil, nil))
	resp, err := c.GetResponse()
	require.NoError(t, err)
	body, err := io.ReadAll(resp)
	require.NoError(t, err)
	require.Equal(t, "foobarbaz", string(body))
	require.Equal(t, StateIdle, c.State())

	// trailer section fully consumed: the transport is reusable in place
	require.NoError(t, c.Request(ctx, "GET", "/", nil, nil))
	resp, err = c.GetResponse()
	require.NoError(t, err)
	got, _ := io.ReadAll(resp)
	require.Equal(t, "after", string(got))
	require.Len(t, d.addrs, 1)
}
