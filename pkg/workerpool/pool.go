// Package workerpool bounds fan-out work such as deleting a product's image
// files or writing a batch of uploads.
//
//	pool := workerpool.New(8)
//	defer pool.Shutdown()
//
//	errs := pool.Map(ctx, len(paths), func(ctx context.Context, i int) error {
//	    return disk.Delete(ctx, paths[i])
//	})
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/usgears/storefront/pkg/logger"
)

// ErrPoolFull is returned by Submit when every worker is busy and the buffer
// is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

var ErrPoolClosed = errors.New("workerpool: pool is closed")

type Pool struct {
	mu      sync.RWMutex
	closed  bool
	tasks   chan func()
	wg      sync.WaitGroup
	closeCh chan struct{}
	once    sync.Once
}

// New starts size workers with a task buffer of twice that.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit never blocks.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued, ctx is done or the pool closes.
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closeCh:
		return ErrPoolClosed
	}
}

// Map runs fn for every index in [0, n) on the pool and waits for all of
// them. The returned slice is indexed like the input; nil means success.
func (p *Pool) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		err := p.SubmitWait(ctx, func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("workerpool: task panicked: %v", r)
				}
			}()
			errs[i] = fn(ctx, i)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	return errs
}

// Shutdown stops intake and waits for queued tasks to finish. It is safe to
// call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		// Release blocked SubmitWait callers before taking the write lock.
		close(p.closeCh)
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

func safeRun(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", r)
		}
	}()
	task()
}
