package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoBoundsConcurrency(t *testing.T) {
	t.Parallel()

	p := New(3)
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		p.Go(func() {
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	p.Wait()

	require.LessOrEqual(t, maxSeen, 3)
	require.Zero(t, active)
}

func TestWaitDrainsAllTasks(t *testing.T) {
	t.Parallel()

	p := New(2)
	var done atomic.Int64
	for i := 0; i < 50; i++ {
		p.Go(func() { done.Add(1) })
	}
	p.Wait()
	require.EqualValues(t, 50, done.Load())
}

func TestDoRunsInline(t *testing.T) {
	t.Parallel()

	p := New(1)
	ran := false
	err := p.Do(context.Background(), func() { ran = true })
	require.NoError(t, err)
	require.True(t, ran)
}

func TestDoRespectsContextWhileQueued(t *testing.T) {
	t.Parallel()

	p := New(1)
	release := make(chan struct{})
	p.Go(func() { <-release })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Do(ctx, func() { t.Error("queued task must not run after cancel") })
	}()

	cancel()
	require.Error(t, <-errCh)
	close(release)
	p.Wait()
}
