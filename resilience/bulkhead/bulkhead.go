// Package bulkhead partitions concurrency per logical pool (provider name
// or per-endpoint group), per spec.md §4.5: a fixed maximum of concurrent
// calls plus a bounded wait queue, with an optional per-call execution
// timeout enforced here.
package bulkhead

import (
	"context"
	"sync"
	"time"

	"github.com/heymumford/skidbladnir/apierrors"
)

// Options configures one pool.
type Options struct {
	MaxConcurrent int
	QueueSize     int
	// Timeout, if non-zero, bounds how long a single Run call's work may
	// take once admitted.
	Timeout time.Duration
}

// Bulkhead holds one pool per logical key (provider or provider+endpoint
// group).
type Bulkhead struct {
	mu    sync.Mutex
	pools map[string]*pool
}

type pool struct {
	opts  Options
	sem   chan struct{}
	queue chan struct{}
}

// New creates an empty Bulkhead; pools are created lazily per key on
// first use via Configure or Run.
func New() *Bulkhead {
	return &Bulkhead{pools: make(map[string]*pool)}
}

// Configure sets (or replaces) the options for a logical pool key before
// any calls are admitted to it.
func (b *Bulkhead) Configure(key string, opts Options) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pools[key] = newPool(opts)
}

func newPool(opts Options) *pool {
	concurrency := opts.MaxConcurrent
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = concurrency * 4
	}
	// Run holds a queue place for the whole call, so the queue channel
	// has room for the running calls as well as the waiting ones.
	return &pool{
		opts:  opts,
		sem:   make(chan struct{}, concurrency),
		queue: make(chan struct{}, concurrency+queueSize),
	}
}

func (b *Bulkhead) poolFor(key string) *pool {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pools[key]
	if !ok {
		p = newPool(Options{MaxConcurrent: 1})
		b.pools[key] = p
	}
	return p
}

// Run admits fn into the named pool's concurrency budget, enforcing the
// pool's timeout (if configured) around fn's execution. Exceeding either
// the queue bound or the pool's concurrency+queue capacity fails fast
// with bulkhead_rejected.
func (b *Bulkhead) Run(ctx context.Context, provider, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	p := b.poolFor(key)

	select {
	case p.queue <- struct{}{}:
	default:
		return nil, apierrors.New(provider, apierrors.Unknown, "bulkhead_rejected: queue full")
	}
	defer func() { <-p.queue }()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, apierrors.New(provider, apierrors.Cancelled, "cancelled waiting for bulkhead slot")
	}
	defer func() { <-p.sem }()

	runCtx := ctx
	var cancel context.CancelFunc
	if p.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	type result struct {
		val interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(runCtx)
		done <- result{val, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, apierrors.New(provider, apierrors.Cancelled, "cancelled")
		}
		return nil, apierrors.New(provider, apierrors.Server, "bulkhead timeout")
	}
}
