// Package dialer owns the byte-stream transports underneath a connection:
// plain TCP dialing, the TLS upgrade, and the HTTP CONNECT proxy handshake.
package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// Dialer is the transport capability set a connection needs: open a stream
// to an address and optionally upgrade an established stream to TLS. Tests
// and callers with exotic transports substitute their own implementation;
// process-wide socket substitution is deliberately not supported.
type Dialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
	WrapTLS(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error)
}

// CoreDialer is the production Dialer over net and crypto/tls.
type CoreDialer struct {
	NetDialer net.Dialer
	TLSConfig *tls.Config // cloned per handshake; nil means defaults
	Logger    *zap.Logger
}

func (d *CoreDialer) log() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func (d *CoreDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if a, aerr := idna.Lookup.ToASCII(host); aerr == nil && a != host {
			addr = net.JoinHostPort(a, port)
		}
	}
	d.log().Debug("dialing", zap.String("addr", addr))
	return d.NetDialer.DialContext(ctx, "tcp", addr)
}

func (d *CoreDialer) WrapTLS(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error) {
	cfg := d.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}
