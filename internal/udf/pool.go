package udf

import (
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
)

// threadPool recycles Starlark threads. A thread runs one call at a time,
// so concurrent queries each take their own.
type threadPool struct {
	mu       sync.Mutex
	threads  []*starlark.Thread
	maxSize  int
	maxSteps uint64
	logger   *slog.Logger
}

func newThreadPool(maxSize int, maxSteps uint64, logger *slog.Logger) *threadPool {
	if maxSize <= 0 {
		maxSize = 10
	}
	return &threadPool{
		threads:  make([]*starlark.Thread, 0, maxSize),
		maxSize:  maxSize,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// get retrieves a thread from the pool or creates a new one. The name is
// used in Starlark backtraces.
func (p *threadPool) get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.threads); n > 0 {
		thread := p.threads[n-1]
		p.threads = p.threads[:n-1]
		thread.Name = name
		thread.Steps = 0
		return thread
	}

	thread := &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			p.logger.Debug("udf print", "function", t.Name, "message", msg)
		},
	}
	if p.maxSteps > 0 {
		thread.SetMaxExecutionSteps(p.maxSteps)
	}
	return thread
}

// put returns a thread to the pool. If the pool is full, the thread is
// discarded. Threads whose call failed are not returned since they may
// be cancelled.
func (p *threadPool) put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		thread.Name = ""
		p.threads = append(p.threads, thread)
	}
}

// size returns the number of idle threads.
func (p *threadPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
