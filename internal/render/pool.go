package render

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Executor runs filter jobs off the presentation loop
type Executor interface {
	// Submit queues job. It returns false if the job was not accepted; the
	// caller then skips the frame.
	Submit(job func()) bool
}

// Inline runs jobs synchronously on the caller's goroutine
type Inline struct{}

// Submit runs job immediately
func (Inline) Submit(job func()) bool {
	job()
	return true
}

// Pool is a fixed set of worker goroutines fed from a bounded queue
type Pool struct {
	workers int
	jobs    chan func()

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      conc.WaitGroup
}

// NewPool creates a pool with the given number of workers (NumCPU if <= 0)
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan func(), workers*4),
	}
}

// Workers returns the worker count
func (p *Pool) Workers() int {
	return p.workers
}

// Start spawns the workers
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Go(func() {
			p.work(ctx)
		})
	}

	logger.WithComponent("render-pool").Info().
		Int("workers", p.workers).
		Msg("Filter pool started")
	return nil
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			job()
		}
	}
}

// Submit queues job without blocking
func (p *Pool) Submit(job func()) bool {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop cancels the workers and waits for them to exit. Queued jobs that have
// not started are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	logger.WithComponent("render-pool").Info().Msg("Filter pool stopped")
}
