package notes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRegistry_NotifyReachesEveryCallback(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	var calls atomic.Int32
	for range 5 {
		reg.Register(func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	reg.Notify(context.Background())
	reg.Wait()

	assert.EqualValues(t, 5, calls.Load())
}

func TestRegistry_UnregisterRemovesOnlyThatCallback(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	var a, b atomic.Int32
	unregA := reg.Register(func(context.Context) error { a.Add(1); return nil })
	reg.Register(func(context.Context) error { b.Add(1); return nil })

	unregA()
	reg.Notify(context.Background())
	reg.Wait()

	assert.Zero(t, a.Load())
	assert.EqualValues(t, 1, b.Load())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_UnregisterTwiceIsHarmless(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	unreg := reg.Register(func(context.Context) error { return nil })
	reg.Register(func(context.Context) error { return nil })

	unreg()
	unreg()

	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SameFunctionRegisteredTwiceRunsTwice(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	var calls atomic.Int32
	cb := func(context.Context) error { calls.Add(1); return nil }
	unreg := reg.Register(cb)
	reg.Register(cb)

	reg.Notify(context.Background())
	reg.Wait()
	assert.EqualValues(t, 2, calls.Load())

	unreg()
	reg.Notify(context.Background())
	reg.Wait()
	assert.EqualValues(t, 3, calls.Load())
}

func TestRegistry_FailingCallbacksDoNotAffectOthers(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	reg := NewRegistry(silentLogger, metrics)

	var ok atomic.Int32
	reg.Register(func(context.Context) error { return errors.New("boom") })
	reg.Register(func(context.Context) error { panic("kaboom") })
	reg.Register(func(context.Context) error { ok.Add(1); return nil })

	require.NotPanics(t, func() {
		reg.Notify(context.Background())
		reg.Wait()
	})

	assert.EqualValues(t, 1, ok.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.failures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.notifications), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.registered), 0)
}

func TestRegistry_NotifyDoesNotWaitForCallbacks(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	reg.Register(func(context.Context) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		reg.Notify(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow callback")
	}

	<-started
	close(release)
	reg.Wait()
}

func TestRegistry_CallbacksOutliveCanceledContext(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	errCh := make(chan error, 1)
	reg.Register(func(ctx context.Context) error {
		errCh <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg.Notify(ctx)
	reg.Wait()

	assert.NoError(t, <-errCh)
}

func TestRegistry_NotifyWithoutCallbacks(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	assert.NotPanics(t, func() {
		reg.RefetchNotes(context.Background())
		reg.Wait()
	})
}

func TestRegistry_ConcurrentRegisterAndNotify(t *testing.T) {
	reg := NewRegistry(silentLogger, nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unreg := reg.RegisterRefetch(func(context.Context) error { return nil })
			unreg()
		}()
		go func() {
			defer wg.Done()
			reg.Notify(context.Background())
		}()
	}
	wg.Wait()
	reg.Wait()

	assert.Zero(t, reg.Len())
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.incNotify()
		m.incFailure()
		m.setRegistered(3)
		m.IncDropped()
	})
}
