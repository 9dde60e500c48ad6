package dialer

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport"
)

// ProxyConnectError reports a proxy that refused to establish a tunnel. It
// carries the proxy's own status line so callers can distinguish, say, a 407
// from a 502.
type ProxyConnectError struct {
	StatusCode int
	Reason     string
}

func (e *ProxyConnectError) Error() string {
	return fmt.Sprintf("httpc: proxy refused CONNECT: %d %s", e.StatusCode, e.Reason)
}

// connectBodyLimit caps how much of a failed CONNECT's body is drained off
// the socket before it is abandoned.
const connectBodyLimit = 64 << 10

// Tunnel performs the CONNECT handshake for host:port over an established
// stream to the proxy. CONNECT is issued as HTTP/1.0, so the proxy will not
// chunk its reply and cannot assume keep-alive on failure. On a non-2xx
// reply the stream is closed and a *ProxyConnectError returned; on success
// the stream relays raw bytes to the target from here on.
func Tunnel(conn net.Conn, host, port string, proxyHeaders *header.Header, deadline time.Time) error {
	if !deadline.IsZero() {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	hdr := header.New()
	hdr.Fold(proxyHeaders)
	hdr.Append("accept-encoding", "identity")
	req := &transport.Request{
		Method:        "CONNECT",
		Target:        net.JoinHostPort(host, port),
		Proto:         "HTTP/1.0",
		Host:          host,
		Header:        hdr,
		ContentLength: -1,
	}
	if err := transport.WriteRequest(conn, req); err != nil {
		conn.Close()
		return err
	}

	br := bufio.NewReader(conn)
	st, rhdr, err := transport.ReadStatus(br)
	if err != nil {
		conn.Close()
		return err
	}
	if st.Code/100 == 2 {
		if br.Buffered() > 0 {
			conn.Close()
			return fmt.Errorf("%w: proxy sent data after CONNECT response", transport.ErrMalformedResponse)
		}
		return nil
	}

	// Failed handshake. Drain whatever body the proxy framed before giving
	// the socket up, so resets don't race the error on the way back.
	if strategy, serr := transport.SelectStrategy("CONNECT", st, rhdr); serr == nil && strategy.Kind != transport.NoBody {
		body := transport.NewBodyReader(br, strategy)
		io.Copy(io.Discard, io.LimitReader(body, connectBodyLimit))
	}
	conn.Close()
	return &ProxyConnectError{StatusCode: st.Code, Reason: st.Reason}
}
