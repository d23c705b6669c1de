package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to a single node endpoint. It wraps
// golang.org/x/time/rate.Limiter, so there is no refill goroutine to manage.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter that accrues one token every interval, with
// at most burst tokens banked.
func NewLimiter(interval time.Duration, burst int) *Limiter {
	if interval <= 0 {
		interval = time.Millisecond
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Pool hands out one Limiter per node URL so each endpoint is throttled
// independently of the others.
type Pool struct {
	limiters map[string]*Limiter
	mutex    sync.RWMutex
	interval time.Duration
	burst    int
}

func NewPool(interval time.Duration, burst int) *Pool {
	return &Pool{
		limiters: make(map[string]*Limiter),
		interval: interval,
		burst:    burst,
	}
}

// Wait waits for permission to talk to the given node.
func (p *Pool) Wait(ctx context.Context, node string) error {
	return p.limiter(node).Wait(ctx)
}

func (p *Pool) limiter(node string) *Limiter {
	p.mutex.RLock()
	l, ok := p.limiters[node]
	p.mutex.RUnlock()
	if ok {
		return l
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if l, ok := p.limiters[node]; ok {
		return l
	}
	l = NewLimiter(p.interval, p.burst)
	p.limiters[node] = l
	return l
}

// Close drops the per-node limiters. The underlying rate.Limiter holds no
// resources, so there is nothing else to release.
func (p *Pool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.limiters = make(map[string]*Limiter)
}
