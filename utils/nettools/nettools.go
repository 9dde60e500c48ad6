// Package nettools provides fd-level checks on established connections that
// the portable net API cannot express.
package nettools

import (
	"net"
	"syscall"
)

var probe func(syscall.RawConn) bool

// Stale reports whether an idle connection is positively known to be
// unusable: the peer has half-closed it, reset it, or sent bytes nobody
// asked for. A false result means "unsure", not "healthy"; platforms
// without a probe always report false and leave detection to the write path.
func Stale(c net.Conn) bool {
	if probe == nil {
		return false
	}
	rc := rawConn(c)
	if rc == nil {
		return false
	}
	return probe(rc)
}

func rawConn(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// *tls.Conn or a polyfilled TLS connection
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if rc, err := c.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
