// Package pool provides bounded FIFO worker pools. The pipeline runs three
// independent lanes: row work, headless-render work and subprocess-extraction
// work. A row task may block on a nested lane while holding its own slot, so
// lane sizes are configured with that nesting in mind.
package pool

import (
	"context"
	"fmt"
	"sync"
)

// Pool bounds the number of tasks running at once. Beyond the cap callers
// queue on the slot channel and drain in FIFO order as capacity frees. There
// is no task priority and no cancellation of in-flight work.
type Pool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

// New builds a pool with the given concurrency cap.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Do runs fn in the calling goroutine once a slot is free. It returns without
// running fn if the context ends while waiting; a task that already started
// always runs to completion.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("pool slot wait canceled: %w", ctx.Err())
	}
	defer func() { <-p.slots }()
	fn()
	return nil
}

// Go runs fn on its own goroutine once a slot is free. The call blocks only
// while acquiring the slot, keeping submission order FIFO. Use Wait to join.
func (p *Pool) Go(fn func()) {
	p.slots <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()
		fn()
	}()
}

// Wait blocks until every task submitted via Go has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
