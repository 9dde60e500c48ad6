package httpc

import (
	"github.com/wirehttp/httpc/internal/dialer"
)

type Dialer = dialer.Dialer
type CoreDialer = dialer.CoreDialer

type ProxyConnectError = dialer.ProxyConnectError
