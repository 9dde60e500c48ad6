package netpool

import (
	"context"
	"sync"
	"time"
)

// Group keys pools by origin so each host gets its own connection and idle
// budgets.
type Group struct {
	sync.RWMutex
	pools map[string]*Pool

	maxConnsPerHost, maxIdlePerHost uint
	maxIdleDuration                 time.Duration
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint, maxIdleDuration time.Duration) *Group {
	return &Group{
		pools:           map[string]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
		maxIdleDuration: maxIdleDuration,
	}
}

func (g *Group) pool(key string) *Pool {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost, g.maxIdleDuration)
		g.pools[key] = p
	}
	g.Unlock()
	return p
}

func (g *Group) Get(ctx context.Context, key string, dial func(ctx context.Context) (Entry, error)) (Entry, error) {
	return g.pool(key).Get(ctx, dial)
}

func (g *Group) Put(key string, e Entry) {
	g.pool(key).Put(e)
}

func (g *Group) Forget(key string, e Entry) {
	g.pool(key).Forget(e)
}
