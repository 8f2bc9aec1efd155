package job

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

// ErrorStage is the errlog stage key for failures that end a job.
const ErrorStage = "process_brief"

// ErrExecutorClosed is returned by Submit after Shutdown.
var ErrExecutorClosed = eris.New("executor is shut down")

// errCanceled is the failure recorded for a canceled job.
var errCanceled = eris.New("job canceled")

// Runner produces a brief for url, reporting progress as it goes.
type Runner interface {
	Run(ctx context.Context, url string, progress func(percent int, message string)) (*model.BriefResult, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error)

func (f RunnerFunc) Run(ctx context.Context, url string, progress func(int, string)) (*model.BriefResult, error) {
	return f(ctx, url, progress)
}

type task struct {
	id     string
	url    string
	ctx    context.Context
	cancel context.CancelFunc
}

// Stats is a point-in-time view of the executor.
type Stats struct {
	Workers int  `json:"workers"`
	Queued  int  `json:"queued"`
	Running int  `json:"running"`
	Closed  bool `json:"closed"`
}

// Executor runs submitted jobs on a fixed pool of workers. The queue is
// unbounded, so Submit never waits for a free worker.
type Executor struct {
	store   *Store
	runner  Runner
	errors  *errlog.Aggregator
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*task
	active  map[string]*task
	running int
	closed  bool

	base   context.Context
	stop   context.CancelFunc
	g      *errgroup.Group
	doneCh chan struct{}
}

// NewExecutor creates an executor. Call Start before submitting.
func NewExecutor(store *Store, runner Runner, errs *errlog.Aggregator, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		store:   store,
		runner:  runner,
		errors:  errs,
		workers: workers,
		active:  make(map[string]*task),
		doneCh:  make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Start launches the workers. Jobs run under contexts derived from ctx.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	e.base, e.stop = context.WithCancel(ctx)
	e.mu.Unlock()

	e.g = &errgroup.Group{}
	for i := 0; i < e.workers; i++ {
		e.g.Go(func() error {
			e.work(i)
			return nil
		})
	}
	go func() {
		_ = e.g.Wait()
		close(e.doneCh)
	}()
	zap.L().Info("executor started", zap.Int("workers", e.workers))
}

// Submit queues job id for url and returns immediately.
func (e *Executor) Submit(id, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.base == nil {
		return ErrExecutorClosed
	}
	ctx, cancel := context.WithCancel(e.base)
	t := &task{id: id, url: url, ctx: ctx, cancel: cancel}
	e.queue = append(e.queue, t)
	e.active[id] = t
	e.cond.Signal()
	return nil
}

// Cancel asks a queued or running job to stop. The job fails with
// "job canceled" once its worker notices. Finished jobs are left alone.
func (e *Executor) Cancel(id string) error {
	if _, err := e.store.Get(id); err != nil {
		return err
	}
	e.mu.Lock()
	t, ok := e.active[id]
	e.mu.Unlock()
	if ok {
		t.cancel()
	}
	return nil
}

// Stats reports the pool size and the queue depth.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Workers: e.workers, Queued: len(e.queue), Running: e.running, Closed: e.closed}
}

// Shutdown stops intake, cancels every queued and running job and waits for
// the workers to exit or ctx to end.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	started := e.base != nil
	e.cond.Broadcast()
	e.mu.Unlock()

	if !started {
		return nil
	}
	e.stop()

	select {
	case <-e.doneCh:
		zap.L().Info("executor stopped")
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "executor: shutdown")
	}
}

// next blocks until a task is available. It returns false once the
// executor is closed and the queue is drained.
func (e *Executor) next() (*task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) == 0 && !e.closed {
		e.cond.Wait()
	}
	if len(e.queue) == 0 {
		return nil, false
	}
	t := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	e.running++
	return t, true
}

func (e *Executor) work(worker int) {
	for {
		t, ok := e.next()
		if !ok {
			return
		}
		e.execute(worker, t)

		e.mu.Lock()
		e.running--
		delete(e.active, t.id)
		e.mu.Unlock()
		t.cancel()
	}
}

func (e *Executor) execute(worker int, t *task) {
	log := zap.L().With(zap.String("job_id", t.id), zap.String("url", t.url), zap.Int("worker", worker))

	if t.ctx.Err() != nil {
		e.fail(log, t, errCanceled)
		return
	}

	log.Info("job started")
	progress := func(percent int, message string) {
		if err := e.store.Update(t.id, func(r *Record) {
			r.Progress = percent
			r.Message = message
		}); err != nil {
			log.Debug("progress update dropped", zap.Error(err))
		}
	}

	result, err := e.run(t, progress)
	if err != nil {
		if t.ctx.Err() != nil && errors.Is(err, context.Canceled) {
			err = errCanceled
		}
		e.fail(log, t, err)
		return
	}

	if err := e.store.Update(t.id, func(r *Record) { r.Complete(result) }); err != nil {
		log.Error("job completion not stored", zap.Error(err))
		return
	}
	log.Info("job completed", zap.String("brief_url", result.BriefURL))
}

// run invokes the runner, turning a panic into a PanicError.
func (e *Executor) run(t *task, progress func(int, string)) (result *model.BriefResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			zap.L().Error("job panicked",
				zap.String("job_id", t.id),
				zap.Any("panic", v),
				zap.ByteString("stack", debug.Stack()),
			)
			result, err = nil, &errlog.PanicError{Value: v}
		}
	}()
	result, err = e.runner.Run(t.ctx, t.url, progress)
	if err == nil && result == nil {
		err = eris.New("runner returned no result")
	}
	return result, err
}

func (e *Executor) fail(log *zap.Logger, t *task, err error) {
	desc := err.Error()
	if e.errors != nil {
		e.errors.Record(ErrorStage, err, map[string]any{"job_id": t.id, "url": t.url})
	}
	if uerr := e.store.Update(t.id, func(r *Record) { r.Fail(desc) }); uerr != nil {
		log.Error("job failure not stored", zap.Error(uerr))
	}
	log.Warn("job failed", zap.String("error", desc))
}
