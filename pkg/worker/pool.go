package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dr0pdb/icecanegraph/internal/common"
	pcommon "github.com/dr0pdb/icecanegraph/pkg/common"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSize is the number of workers of a pool created with a non positive size.
	DefaultSize = 5

	queueFactor = 4
)

// Pool is a fixed-size pool of goroutines running units of work.
// Each unit runs in its own transaction begun without joining any other.
type Pool struct {
	mgr  *mvcc.TransactionManager
	size int

	awaitTimeout time.Duration

	// mu makes closing the queue exclusive with sends on it.
	mu     sync.RWMutex
	queue  chan *Future
	closed pcommon.ProtectedBool

	group *errgroup.Group
}

// Option configures a Pool.
type Option func(*Pool)

// WithAwaitTimeout bounds how long Await blocks. 0 means no bound.
func WithAwaitTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.awaitTimeout = d
	}
}

// Submit queues the unit of work.
// returns PoolClosedError if the pool has been shut down.
func (p *Pool) Submit(ctx context.Context, name string, unit Unit) (*Future, error) {
	if unit == nil {
		return nil, fmt.Errorf("unit %s is nil", name)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Get() {
		return nil, common.NewPoolClosedError(fmt.Sprintf("pool is shut down; rejected unit %s", name))
	}

	f := newFuture(ctx, name, unit)
	select {
	case p.queue <- f:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	log.WithFields(log.Fields{"unit": name, "id": f.id}).Debug("worker::pool::Submit; queued")
	return f, nil
}

// Await blocks until the unit reached a terminal state.
// returns WorkerFailureError if the unit failed, AwaitTimeoutError if the await timeout
// elapsed first, or the error of ctx if it is done first.
func (p *Pool) Await(ctx context.Context, f *Future) (Result, error) {
	var timeout <-chan time.Time
	if p.awaitTimeout > 0 {
		timer := time.NewTimer(p.awaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-f.done:
		return f.result(), f.err
	case <-ctx.Done():
		return Result{ID: f.id, Name: f.name, State: f.State()}, ctx.Err()
	case <-timeout:
		log.WithFields(log.Fields{"unit": f.name, "id": f.id, "timeout": p.awaitTimeout}).Warn("worker::pool::Await; timed out")
		return Result{ID: f.id, Name: f.name, State: f.State()},
			common.NewAwaitTimeoutError(fmt.Sprintf("unit %s did not finish within %s", f.name, p.awaitTimeout))
	}
}

// Run submits the unit and awaits it.
func (p *Pool) Run(ctx context.Context, name string, unit Unit) (Result, error) {
	f, err := p.Submit(ctx, name, unit)
	if err != nil {
		return Result{}, err
	}
	return p.Await(ctx, f)
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Shutdown stops accepting work, lets the queued units finish and waits for the workers to exit.
// It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed.CompareAndSet(false, true) {
		p.mu.Unlock()
		return
	}
	close(p.queue)
	p.mu.Unlock()

	_ = p.group.Wait()
	log.Info("worker::pool::Shutdown; all workers exited")
}

// worker is the processing loop of a single worker.
func (p *Pool) worker(workerID int) {
	log.WithFields(log.Fields{"workerID": workerID}).Debug("worker::pool::worker; started")

	for f := range p.queue {
		p.run(workerID, f)
	}

	log.WithFields(log.Fields{"workerID": workerID}).Debug("worker::pool::worker; finished")
}

// run executes one unit in a fresh transaction and completes its future.
func (p *Pool) run(workerID int, f *Future) {
	logger := log.WithFields(log.Fields{"workerID": workerID, "unit": f.name, "id": f.id})

	if err := f.ctx.Err(); err != nil {
		logger.Debug("worker::pool::run; skipped, context is done")
		f.complete(0, common.NewWorkerFailureError("unit was cancelled before it ran", f.name, err))
		return
	}

	f.setState(Running)

	// the unit must never see a txn of the submitter.
	ctx := mvcc.WithoutTransaction(f.ctx)
	txn, err := p.mgr.Begin(ctx)
	if err != nil {
		logger.WithError(err).Error("worker::pool::run; could not begin a txn")
		f.complete(0, common.NewWorkerFailureError("could not begin a transaction", f.name, err))
		return
	}

	// the unit only gets a joined handle so that the pool stays the only committer.
	handle, err := p.mgr.Join(mvcc.WithTransaction(ctx, txn))
	if err != nil {
		if rerr := txn.Rollback(); rerr != nil {
			logger.WithError(rerr).Debug("worker::pool::run; rollback after failed join")
		}
		f.complete(txn.ID(), common.NewWorkerFailureError("could not join the unit transaction", f.name, err))
		return
	}

	if err := runUnit(mvcc.WithTransaction(ctx, handle), handle, f.unit); err != nil {
		logger.WithError(err).Error("worker::pool::run; unit failed, rolling back")
		if rerr := txn.Rollback(); rerr != nil {
			logger.WithError(rerr).Debug("worker::pool::run; rollback after failure")
		}
		f.complete(txn.ID(), common.NewWorkerFailureError("unit of work failed", f.name, err))
		return
	}

	if err := txn.Commit(); err != nil {
		logger.WithError(err).Error("worker::pool::run; commit failed")
		f.complete(txn.ID(), common.NewWorkerFailureError("transaction could not commit", f.name, err))
		return
	}

	logger.WithFields(log.Fields{"txn": txn.ID()}).Debug("worker::pool::run; committed")
	f.complete(txn.ID(), nil)
}

// runUnit turns a panic of the unit into an error.
func runUnit(ctx context.Context, txn *mvcc.Transaction, unit Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit panicked: %v", r)
		}
	}()
	return unit(ctx, txn)
}

// NewPool creates a pool of size workers and starts them.
// A non positive size uses DefaultSize.
func NewPool(mgr *mvcc.TransactionManager, size int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultSize
	}

	p := &Pool{
		mgr:   mgr,
		size:  size,
		queue: make(chan *Future, size*queueFactor),
		group: new(errgroup.Group),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		workerID := i
		p.group.Go(func() error {
			p.worker(workerID)
			return nil
		})
	}

	log.WithFields(log.Fields{"size": size, "awaitTimeout": p.awaitTimeout}).Info("worker::pool::NewPool; started")
	return p
}
