// Package conn implements the client-side HTTP/1.1 connection: a state
// machine over one transport at a time that serializes requests, parses
// responses, reuses the transport across exchanges when framing allows it,
// negotiates proxy tunnels, and resends a request exactly once when a
// kept-alive transport turns out to be dead.
package conn

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wirehttp/httpc/internal/dialer"
	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport"
	"github.com/wirehttp/httpc/utils/nettools"
)

// Connection is a client connection to one origin, optionally through an
// HTTP proxy. It persists across many request/response exchanges while the
// transport underneath it comes and goes. Methods must not be called
// concurrently; a Connection provides no internal locking.
type Connection struct {
	host, port string
	useTLS     bool

	proxyHost, proxyPort string
	proxyHeaders         *header.Header

	d   dialer.Dialer
	log *zap.Logger

	nc    net.Conn
	br    *bufio.Reader
	state State
	// exchanged is set once a full exchange completed on the current
	// transport. Only then is a write failure attributed to a stale
	// keep-alive connection and retried.
	exchanged bool

	pending string // method of the in-flight request
	res     *Response
	onDone  func(*Connection)
}

type Option func(*Connection) error

// WithProxy routes all traffic through an HTTP proxy at hostport (port 80
// when absent). Non-TLS requests are sent to the proxy in absolute-form;
// TLS targets are reached through a CONNECT tunnel.
func WithProxy(hostport string) Option {
	return func(c *Connection) error {
		host, port := splitHostPort(hostport)
		if port == "" {
			port = "80"
		}
		c.proxyHost, c.proxyPort = host, port
		return nil
	}
}

// WithProxyHeaders adds headers sent only on the CONNECT request, such as
// Proxy-Authorization. Requires WithProxy.
func WithProxyHeaders(h *header.Header) Option {
	return func(c *Connection) error {
		c.proxyHeaders = h.Clone()
		return nil
	}
}

// WithTLS forces the TLS upgrade path regardless of port.
func WithTLS() Option {
	return func(c *Connection) error {
		c.useTLS = true
		return nil
	}
}

// WithTLSConfig supplies the TLS client configuration and implies WithTLS.
// It applies only to the default dialer; a custom Dialer owns its own TLS
// settings.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Connection) error {
		c.useTLS = true
		if cd, ok := c.d.(*dialer.CoreDialer); ok {
			cd.TLSConfig = cfg
		}
		return nil
	}
}

// WithDialer substitutes the transport factory.
func WithDialer(d dialer.Dialer) Option {
	return func(c *Connection) error {
		c.d = d
		return nil
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Connection) error {
		c.log = log
		return nil
	}
}

// New creates a Connection to hostport. The port defaults to 80, or 443
// under WithTLS; a target port of 443 selects TLS on its own. No I/O
// happens until Connect or the first Request.
func New(hostport string, opts ...Option) (*Connection, error) {
	host, port := splitHostPort(hostport)
	if host == "" {
		return nil, fmt.Errorf("httpc: empty host in %q", hostport)
	}
	c := &Connection{
		host: host, port: port,
		useTLS: port == "443",
		log:    zap.NewNop(),
	}
	cd := &dialer.CoreDialer{}
	c.d = cd
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.port == "" {
		if c.useTLS {
			c.port = "443"
		} else {
			c.port = "80"
		}
	}
	if c.proxyHeaders != nil && c.proxyHost == "" {
		return nil, ErrProxyConfig
	}
	if cd == c.d && cd.Logger == nil {
		cd.Logger = c.log
	}
	return c, nil
}

func splitHostPort(hostport string) (host, port string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), ""
	}
	return host, port
}

// State returns the current lifecycle state.
func (c *Connection) State() State { return c.state }

// Reusable reports whether the Connection can serve a Request without
// interfering with an in-flight exchange. Pools use this to decide whether
// to park it.
func (c *Connection) Reusable() bool {
	switch c.state {
	case StateIdle, StateUnconnected:
		return true
	}
	return false
}

// OnDone registers a hook invoked each time an exchange completes and the
// Connection becomes available again (or has torn down its transport).
func (c *Connection) OnDone(fn func(*Connection)) { c.onDone = fn }

// authority is the origin's host[:port], omitting default ports.
func (c *Connection) authority() string {
	if (c.useTLS && c.port == "443") || (!c.useTLS && c.port == "80") {
		return c.host
	}
	return net.JoinHostPort(c.host, c.port)
}

// tunneling reports whether requests ride a CONNECT tunnel rather than
// being proxied in absolute-form.
func (c *Connection) tunneling() bool {
	return c.proxyHost != "" && c.useTLS
}

// Connect establishes the transport: to the proxy when one is configured,
// else to the origin, tunneling and upgrading to TLS as required. It is a
// no-op when the Connection is already connected.
func (c *Connection) Connect(ctx context.Context) error {
	switch c.state {
	case StateIdle, StateRequestSent, StateResponsePending:
		return nil
	}
	return c.connect(ctx)
}

func (c *Connection) connect(ctx context.Context) error {
	c.teardown()
	c.state = StateConnecting

	addr := net.JoinHostPort(c.host, c.port)
	if c.proxyHost != "" {
		addr = net.JoinHostPort(c.proxyHost, c.proxyPort)
	}
	nc, err := c.d.Dial(ctx, addr)
	if err != nil {
		c.state = StateUnconnected
		return fmt.Errorf("httpc: dial %s: %w", addr, err)
	}

	if c.tunneling() {
		c.state = StateTunneling
		deadline, _ := ctx.Deadline()
		if err := dialer.Tunnel(nc, c.host, c.port, c.proxyHeaders, deadline); err != nil {
			c.state = StateUnconnected
			return err
		}
		c.log.Debug("tunnel established",
			zap.String("proxy", addr),
			zap.String("target", net.JoinHostPort(c.host, c.port)))
	}
	if c.useTLS {
		tc, err := c.d.WrapTLS(ctx, nc, c.host)
		if err != nil {
			nc.Close()
			c.state = StateUnconnected
			return fmt.Errorf("httpc: tls handshake with %s: %w", c.host, err)
		}
		nc = tc
	}

	c.nc = nc
	c.br = bufio.NewReader(nc)
	c.state = StateIdle
	c.exchanged = false
	return nil
}

// Request writes one request. The connection is established lazily; a write
// failure on a transport that already served an exchange is recovered by
// reconnecting and resending exactly once, which is safe because no bytes
// of a response have been consumed yet. Body may be nil, a byte-shaped
// value (string, []byte, *bytes.Buffer/Reader, *strings.Reader), or an
// io.Reader; byte-shaped bodies carry Content-Length and survive the
// resend, raw readers are sent with chunked framing and do not.
func (c *Connection) Request(ctx context.Context, method, path string, hdr *header.Header, body interface{}) error {
	if c.state == StateRequestSent || c.state == StateResponsePending {
		return ErrSequence
	}
	if c.res != nil && !c.res.done {
		return ErrSequence
	}

	getBody, contentLength, err := makeBody(body)
	if err != nil {
		return err
	}

	reused := false
	switch c.state {
	case StateIdle:
		if c.exchanged && nettools.Stale(c.nc) {
			c.log.Debug("idle connection stale, reconnecting", zap.String("host", c.host))
			if err := c.connect(ctx); err != nil {
				return err
			}
		} else {
			reused = c.exchanged
		}
	default:
		if err := c.connect(ctx); err != nil {
			return err
		}
	}

	frame := c.buildFrame(method, path, hdr, contentLength)

	if err := c.writeFrame(ctx, frame, getBody); err != nil {
		c.teardown()
		if !reused {
			c.state = StateBroken
			return fmt.Errorf("httpc: write request: %w", err)
		}
		// Stale keep-alive connection: the peer closed it between
		// exchanges. Reconnect and resend once.
		c.log.Debug("write on reused connection failed, retrying once",
			zap.String("host", c.host), zap.Error(err))
		if cerr := c.connect(ctx); cerr != nil {
			return cerr
		}
		if err := c.writeFrame(ctx, frame, getBody); err != nil {
			c.teardown()
			c.state = StateBroken
			return fmt.Errorf("httpc: write request after reconnect: %w", err)
		}
	}

	c.state = StateRequestSent
	c.pending = method
	c.res = nil
	return nil
}

func (c *Connection) buildFrame(method, path string, hdr *header.Header, contentLength int64) *transport.Request {
	if path == "" {
		path = "/"
	}
	hdrs := hdr.Clone()

	host := c.authority()
	if v, ok := hdrs.Get("Host"); ok {
		host = v
		hdrs.Del("Host")
	}
	if !hdrs.Has("Accept-Encoding") {
		hdrs.Append("accept-encoding", "identity")
	}

	target := path
	if c.proxyHost != "" && !c.tunneling() {
		// Plain proxying: the request line carries the absolute URL and the
		// proxy re-issues it toward the origin.
		target = "http://" + c.authority() + path
	}
	return &transport.Request{
		Method:        method,
		Target:        target,
		Host:          host,
		Header:        hdrs,
		ContentLength: contentLength,
	}
}

func (c *Connection) writeFrame(ctx context.Context, frame *transport.Request, getBody func() (io.ReadCloser, error)) error {
	body, err := getBody()
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close()
	}
	frame.Body = body
	frame.Chunked = frame.ContentLength < 0 && body != nil
	if deadline, ok := ctx.Deadline(); ok {
		c.nc.SetDeadline(deadline)
	}
	return transport.WriteRequest(c.nc, frame)
}

// GetResponse parses the status line and headers of the pending request's
// response and returns it with its body undelivered. Valid only after
// Request; the body must be drained (or the Response closed) before the
// next Request.
func (c *Connection) GetResponse() (*Response, error) {
	if c.state != StateRequestSent {
		return nil, ErrSequence
	}

	st, hdr, err := transport.ReadStatus(c.br)
	if err != nil {
		c.markBroken(err)
		if err == io.EOF {
			err = fmt.Errorf("httpc: connection closed before response: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	strategy, err := transport.SelectStrategy(c.pending, st, hdr)
	if err != nil {
		c.markBroken(err)
		return nil, err
	}

	res := &Response{
		StatusCode: st.Code,
		Reason:     st.Reason,
		Proto:      st.Proto,
		Header:     hdr,

		conn:      c,
		strategy:  strategy,
		body:      transport.NewBodyReader(c.br, strategy),
		willClose: strategy.Kind == transport.CloseDelimited || shouldClose(st, hdr),
	}
	c.state = StateResponsePending
	c.res = res
	if strategy.Kind == transport.NoBody {
		res.finish()
	}
	return res, nil
}

// shouldClose decides whether the server intends to close the transport
// after this exchange: HTTP/1.0 closes unless keep-alive was granted,
// HTTP/1.1 stays open unless told otherwise.
func shouldClose(st transport.Status, hdr *header.Header) bool {
	if !st.ProtoAtLeast(1, 1) {
		return !hasConnectionToken(hdr, "keep-alive")
	}
	return hasConnectionToken(hdr, "close")
}

func hasConnectionToken(hdr *header.Header, token string) bool {
	for _, v := range hdr.Values("Connection") {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}

func (c *Connection) markBroken(err error) {
	c.log.Debug("connection broken", zap.String("host", c.host), zap.Error(err))
	c.teardown()
	c.state = StateBroken
	// A broken exchange is still a finished one; pools must get their
	// checkout back so the ticket is not held forever.
	if c.onDone != nil {
		c.onDone(c)
	}
}

func (c *Connection) teardown() {
	if c.nc != nil {
		c.nc.Close()
		c.nc = nil
		c.br = nil
	}
}

// Close tears down the transport. Safe from any state and idempotent; a
// later Request reconnects from scratch.
func (c *Connection) Close() error {
	c.teardown()
	c.state = StateClosed
	return nil
}

// exchangeDone is called by the Response once its body is fully delivered
// or abandoned. The transport either returns to the idle pool of this
// Connection or is torn down when the response was framed by close.
func (c *Connection) exchangeDone(willClose bool) {
	c.pending = ""
	if willClose {
		c.teardown()
		c.state = StateUnconnected
	} else {
		if c.nc != nil {
			c.nc.SetDeadline(time.Time{})
		}
		c.state = StateIdle
		c.exchanged = true
	}
	if c.onDone != nil {
		c.onDone(c)
	}
}
