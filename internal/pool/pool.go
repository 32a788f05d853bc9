// Package pool implements a fixed-size worker pool for map/reduce view
// execution: a fixed number of worker goroutines pulling tasks from a
// bounded FIFO, each worker owning exactly one persistent,
// thread-affine JS runtime for its entire lifetime, since a runtime
// must never be shared across goroutines.
//
// The pool itself (fixed worker count, buffered task channel,
// Start/Stop/Submit/WorkerCount, a stopped flag guarding Submit after
// Stop) is a generic fan-out primitive; what's specific to this use is
// that each worker constructs its own jsruntime.Runtime once in its
// goroutine and reuses it for every task it ever runs, since
// goja.Runtime is not safe for concurrent or cross-goroutine use.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/avancedb/avancedb/internal/config"
	"github.com/avancedb/avancedb/internal/dblog"
	"github.com/avancedb/avancedb/internal/jsruntime"
	"github.com/avancedb/avancedb/internal/metrics"
)

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("pool: worker pool stopped")

// ErrQueueFull is returned by Submit when the task queue has no room
// and the pool is configured to reject rather than block.
var ErrQueueFull = errors.New("pool: task queue full")

// Task is one unit of work submitted to the pool. Run is invoked on the
// worker's own persistent *jsruntime.Runtime; Done must always be
// signaled exactly once, by the pool, after Run returns.
type Task struct {
	Run  func(rt *jsruntime.Runtime)
	Done chan struct{}
}

// Pool is the map/reduce worker pool.
type Pool struct {
	mu        sync.Mutex
	taskQueue chan *Task
	workers   []*worker
	count     int
	stopped   bool
	wg        sync.WaitGroup
	logger    *dblog.Logger
	blocking  bool
	metrics   *metrics.Metrics
}

// SetMetrics attaches m so Submit reports queue depth to
// m.WorkerQueueDepth. Passing nil detaches metrics reporting.
func (p *Pool) SetMetrics(m *metrics.Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
}

type worker struct {
	id        int
	taskQueue chan *Task
	logger    *dblog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New constructs a Pool sized from cfg. The pool is not started until
// Start is called.
func New(cfg *config.Config, logger *dblog.Logger) *Pool {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = dblog.Default()
	}

	count := cfg.WorkerCount
	if count <= 0 {
		count = runtime.NumCPU()
	}
	queueSize := cfg.TaskQueueSize
	if queueSize <= 0 {
		queueSize = config.DefaultTaskQueueSize
	}

	return &Pool{
		taskQueue: make(chan *Task, queueSize),
		count:     count,
		logger:    logger,
		// Submit blocks on a full queue rather than rejecting, since the
		// map/reduce executor needs every task it submits to eventually
		// run rather than fail fast under a burst of shards.
		blocking: true,
	}
}

// Start spawns the worker goroutines. Calling Start twice, or after
// Stop, is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || len(p.workers) > 0 {
		return
	}

	p.workers = make([]*worker, p.count)
	for i := 0; i < p.count; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		w := &worker{id: i, taskQueue: p.taskQueue, logger: p.logger, ctx: ctx, cancel: cancel}
		p.workers[i] = w
		p.wg.Add(1)
		go w.run(&p.wg)
	}

	p.logger.Info("map/reduce worker pool started: %d workers", p.count)
}

// Stop closes the task queue, cancels every worker, and waits for all
// in-flight tasks to finish. After Stop returns, Submit always fails
// with ErrPoolStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	workers := p.workers
	p.workers = nil
	close(p.taskQueue)
	p.mu.Unlock()

	for _, w := range workers {
		w.cancel()
	}
	p.wg.Wait()
	p.logger.Info("map/reduce worker pool stopped")
}

// Submit enqueues task, blocking until a worker slot frees up (since
// the pool is constructed with blocking semantics). It returns
// ErrPoolStopped if the pool has already been stopped.
func (p *Pool) Submit(task *Task) error {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrPoolStopped
	}

	if p.blocking {
		p.taskQueue <- task
		p.reportQueueDepth()
		return nil
	}

	select {
	case p.taskQueue <- task:
		p.reportQueueDepth()
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) reportQueueDepth() {
	p.mu.Lock()
	m := p.metrics
	p.mu.Unlock()
	if m != nil {
		m.WorkerQueueDepth.Set(float64(len(p.taskQueue)))
	}
}

// WorkerCount returns the number of worker goroutines this pool runs.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	var rt *jsruntime.Runtime
	for {
		select {
		case <-w.ctx.Done():
			return
		case task, ok := <-w.taskQueue:
			if !ok {
				return
			}
			if rt == nil {
				rt = jsruntime.New()
			}
			w.executeTask(rt, task)
		}
	}
}

func (w *worker) executeTask(rt *jsruntime.Runtime, task *Task) {
	defer close(task.Done)
	task.Run(rt)
}
