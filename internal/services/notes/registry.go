package notes

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RefetchFunc reloads whatever note state its owner keeps.
type RefetchFunc func(ctx context.Context) error

// Notifier is anything that can tell consumers the note collection changed.
type Notifier interface {
	Notify(ctx context.Context)
}

// Registry fans "notes changed" notifications out to registered refetch callbacks.
type Registry struct {
	mu        sync.RWMutex
	callbacks map[ulid.ULID]RefetchFunc
	log       *slog.Logger
	metrics   *Metrics
	inflight  sync.WaitGroup
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(log *slog.Logger, metrics *Metrics) *Registry {
	return &Registry{
		callbacks: make(map[ulid.ULID]RefetchFunc),
		log:       log,
		metrics:   metrics,
	}
}

// Register adds cb and returns the function that removes exactly this
// registration. Calling the returned function more than once is harmless.
func (r *Registry) Register(cb RefetchFunc) func() {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)

	r.mu.Lock()
	r.callbacks[id] = cb
	n := len(r.callbacks)
	r.mu.Unlock()

	r.metrics.setRegistered(n)
	if r.log.Enabled(context.Background(), slog.LevelDebug) {
		r.log.Debug("refetch callback registered", "handle", id.String(), "registered", n)
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.unregister(id) })
	}
}

func (r *Registry) unregister(id ulid.ULID) {
	r.mu.Lock()
	delete(r.callbacks, id)
	n := len(r.callbacks)
	r.mu.Unlock()

	r.metrics.setRegistered(n)
	if r.log.Enabled(context.Background(), slog.LevelDebug) {
		r.log.Debug("refetch callback unregistered", "handle", id.String(), "registered", n)
	}
}

// Notify starts every registered callback and returns without waiting.
// Callbacks run concurrently in no particular order; an error or panic in one
// is logged and never reaches the caller or the other callbacks. The callbacks
// get ctx's values but not its cancellation, since the notifying request
// usually finishes first.
func (r *Registry) Notify(ctx context.Context) {
	r.mu.RLock()
	snapshot := make(map[ulid.ULID]RefetchFunc, len(r.callbacks))
	for id, cb := range r.callbacks {
		snapshot[id] = cb
	}
	r.mu.RUnlock()

	r.metrics.incNotify()
	detached := context.WithoutCancel(ctx)

	for id, cb := range snapshot {
		r.inflight.Add(1)
		go r.run(detached, id, cb)
	}
}

func (r *Registry) run(ctx context.Context, id ulid.ULID, cb RefetchFunc) {
	defer r.inflight.Done()
	defer func() {
		if p := recover(); p != nil {
			r.metrics.incFailure()
			r.log.Error("refetch callback panicked", "handle", id.String(), "panic", p)
		}
	}()

	if err := cb(ctx); err != nil {
		r.metrics.incFailure()
		r.log.Warn("refetch callback failed", "handle", id.String(), "error", err)
	}
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callbacks)
}

// Wait blocks until every callback started by Notify so far has returned.
// Used by shutdown and tests; Notify itself never waits.
func (r *Registry) Wait() {
	r.inflight.Wait()
}

// RegisterRefetch is the consumer-facing name for Register.
func (r *Registry) RegisterRefetch(cb RefetchFunc) func() {
	return r.Register(cb)
}

// RefetchNotes is the consumer-facing name for Notify.
func (r *Registry) RefetchNotes(ctx context.Context) {
	r.Notify(ctx)
}
