// Package netpool is a ticket-based pool of reusable connection-like values.
// A Pool bounds total live entries with a ticket channel and parks reusable
// ones in a bounded idle channel; everything over either bound is closed.
package netpool

import (
	"context"
	"time"
)

// Entry is what the pool manages. Reusable reports whether the entry may be
// handed to another consumer; entries that stop being reusable are closed
// and their ticket released.
type Entry interface {
	Reusable() bool
	Close() error
}

type idleEntry struct {
	e     Entry
	since time.Time
}

type Pool struct {
	connTicket      chan struct{}
	idleTicket      chan idleEntry
	maxIdleDuration time.Duration
}

func NewPool(maxIdle, maxConn uint, maxIdleDuration time.Duration) *Pool {
	return &Pool{
		connTicket:      make(chan struct{}, maxConn),
		idleTicket:      make(chan idleEntry, maxIdle),
		maxIdleDuration: maxIdleDuration,
	}
}

// Get returns an idle entry when a usable one is parked, otherwise takes a
// ticket and dials a new one. Expired or no-longer-reusable idle entries are
// discarded along the way.
func (p *Pool) Get(ctx context.Context, dial func(ctx context.Context) (Entry, error)) (Entry, error) {
	for {
		select {
		case ie := <-p.idleTicket:
			if p.maxIdleDuration != 0 && time.Since(ie.since) > p.maxIdleDuration || !ie.e.Reusable() {
				ie.e.Close()
				p.release()
				continue
			}
			return ie.e, nil
		default:
			select {
			case p.connTicket <- struct{}{}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			e, err := dial(ctx)
			if err != nil {
				p.release()
				return nil, err
			}
			return e, nil
		}
	}
}

// Put parks e for reuse. If e is not reusable or the idle set is full it is
// closed and its ticket released.
func (p *Pool) Put(e Entry) {
	if !e.Reusable() {
		p.Forget(e)
		return
	}
	select {
	case p.idleTicket <- idleEntry{e, time.Now()}:
	default:
		p.Forget(e)
	}
}

// Forget closes e and releases its ticket.
func (p *Pool) Forget(e Entry) {
	e.Close()
	p.release()
}

func (p *Pool) release() {
	select {
	case <-p.connTicket:
	default:
	}
}
