package conn

import "errors"

var (
	// ErrProxyConfig is returned by New when proxy headers are supplied
	// without a proxy address. This is a construction-time mistake, never a
	// runtime condition.
	ErrProxyConfig = errors.New("httpc: proxy headers require a proxy address")

	// ErrSequence reports caller misuse of the request/response cycle:
	// GetResponse without a sent request, or a new Request while the prior
	// response is still undrained.
	ErrSequence = errors.New("httpc: request issued out of sequence")

	// ErrBodyReplay is returned when a one-shot request body would have to
	// be resent, either through a second GetBody call or the stale-write
	// retry.
	ErrBodyReplay = errors.New("httpc: request body cannot be replayed")

	errUnsupportedBody = errors.New("httpc: unsupported request body type")
)
