package conn

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wirehttp/httpc/internal/dialer"
	"github.com/wirehttp/httpc/internal/header"
	"github.com/wirehttp/httpc/utils/netpool"
)

// Client is a convenience layer over pooled Connections: it keys a pool by
// origin, checks a Connection out per call and parks it again once the
// response body has been drained. The zero value is usable.
type Client struct {
	Dialer       dialer.Dialer
	Logger       *zap.Logger
	Proxy        string // HTTP proxy host:port for every request, optional
	ProxyHeaders *header.Header

	MaxConnsPerHost uint // default 100
	MaxIdlePerHost  uint // default 80
	IdleTimeout     time.Duration

	once sync.Once
	pool *netpool.Group
}

func (c *Client) init() {
	maxConns, maxIdle := c.MaxConnsPerHost, c.MaxIdlePerHost
	if maxConns == 0 {
		maxConns = 100
	}
	if maxIdle == 0 {
		maxIdle = 80
	}
	c.pool = netpool.NewGroup(maxConns, maxIdle, c.IdleTimeout)
}

// CtxDo performs one exchange against rawurl. The returned Response must be
// drained or closed; that is the moment its Connection goes back into the
// pool. Body accepts the same values as Connection.Request.
func (c *Client) CtxDo(ctx context.Context, method, rawurl string, hdr *header.Header, body interface{}) (*Response, error) {
	c.once.Do(c.init)

	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	var useTLS bool
	switch u.Scheme {
	case "http":
	case "https":
		useTLS = true
	default:
		return nil, fmt.Errorf("httpc: unsupported scheme %q", u.Scheme)
	}
	hostport := u.Host
	if u.Port() == "" {
		if useTLS {
			hostport = u.Hostname() + ":443"
		} else {
			hostport = u.Hostname() + ":80"
		}
	}
	key := u.Scheme + "://" + hostport

	e, err := c.pool.Get(ctx, key, func(ctx context.Context) (netpool.Entry, error) {
		opts := []Option{}
		if useTLS {
			opts = append(opts, WithTLS())
		}
		if c.Dialer != nil {
			opts = append(opts, WithDialer(c.Dialer))
		}
		if c.Logger != nil {
			opts = append(opts, WithLogger(c.Logger))
		}
		if c.Proxy != "" {
			opts = append(opts, WithProxy(c.Proxy))
			if c.ProxyHeaders != nil {
				opts = append(opts, WithProxyHeaders(c.ProxyHeaders))
			}
		}
		return New(hostport, opts...)
	})
	if err != nil {
		return nil, err
	}
	cn := e.(*Connection)
	// One ticket release per checkout: the done hook and the error paths
	// below can both observe the same failed exchange.
	released := false
	release := func(cn *Connection) {
		if released {
			return
		}
		released = true
		c.pool.Put(key, cn)
	}
	cn.OnDone(release)

	if err := cn.Request(ctx, method, u.RequestURI(), hdr, body); err != nil {
		release(cn)
		return nil, err
	}
	resp, err := cn.GetResponse()
	if err != nil {
		release(cn)
		return nil, err
	}
	return resp, nil
}
