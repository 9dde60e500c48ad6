// Package httpc is a client-side implementation of the HTTP/1.1 wire
// protocol with connection reuse, one-shot retry on stale keep-alive
// sockets, HTTP proxy support (absolute-form and CONNECT tunneling with TLS
// upgrade), and strict multi-valued header and body framing semantics.
package httpc

import (
	"crypto/tls"

	"go.uber.org/zap"

	"github.com/wirehttp/httpc/internal/conn"
	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/internal/transport"
)

type Connection = conn.Connection
type Response = conn.Response
type Client = conn.Client
type Header = header.Header
type Option = conn.Option
type State = conn.State

type BodyStrategy = transport.Strategy
type BodyStrategyKind = transport.StrategyKind

const (
	StateUnconnected     = conn.StateUnconnected
	StateConnecting      = conn.StateConnecting
	StateTunneling       = conn.StateTunneling
	StateIdle            = conn.StateIdle
	StateRequestSent     = conn.StateRequestSent
	StateResponsePending = conn.StateResponsePending
	StateBroken          = conn.StateBroken
	StateClosed          = conn.StateClosed
)

var (
	ErrProxyConfig       = conn.ErrProxyConfig
	ErrSequence          = conn.ErrSequence
	ErrBodyReplay        = conn.ErrBodyReplay
	ErrMalformedResponse = transport.ErrMalformedResponse
	ErrTruncatedResponse = transport.ErrTruncatedResponse
	ErrInvalidField      = header.ErrInvalidField
)

// New creates a Connection to hostport. See the conn package options for
// proxying, TLS and dependency injection.
func New(hostport string, opts ...Option) (*Connection, error) {
	return conn.New(hostport, opts...)
}

// NewHeader creates an empty ordered header collection.
func NewHeader() *Header { return header.New() }

func WithProxy(hostport string) Option     { return conn.WithProxy(hostport) }
func WithProxyHeaders(h *Header) Option    { return conn.WithProxyHeaders(h) }
func WithTLS() Option                      { return conn.WithTLS() }
func WithTLSConfig(cfg *tls.Config) Option { return conn.WithTLSConfig(cfg) }
func WithDialer(d Dialer) Option           { return conn.WithDialer(d) }
func WithLogger(log *zap.Logger) Option    { return conn.WithLogger(log) }
