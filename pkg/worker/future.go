package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	"github.com/google/uuid"
)

// Unit is a unit of work. It runs inside its own independent transaction which the
// pool commits if the unit returns nil and rolls back otherwise.
// The unit gets a handle joined to that transaction, also carried by ctx: committing
// the handle is a no-op and rolling it back makes the pool's commit fail.
type Unit func(ctx context.Context, txn *mvcc.Transaction) error

// Result is the outcome of a unit of work.
type Result struct {
	ID    uuid.UUID
	Name  string
	State State

	// TxnID is the id of the transaction the unit ran in. 0 if none was begun.
	TxnID uint64
}

// Future is the handle to a submitted unit of work.
type Future struct {
	id   uuid.UUID
	name string
	ctx  context.Context
	unit Unit

	state atomic.Int32

	done     chan struct{}
	doneOnce sync.Once
	txnID    uint64
	err      error
}

func newFuture(ctx context.Context, name string, unit Unit) *Future {
	return &Future{
		id:   uuid.New(),
		name: name,
		ctx:  ctx,
		unit: unit,
		done: make(chan struct{}),
	}
}

// ID returns the unique id of the unit.
func (f *Future) ID() uuid.UUID {
	return f.id
}

// Name returns the name given at submission.
func (f *Future) Name() string {
	return f.name
}

// State atomically retrieves the state of the unit.
func (f *Future) State() State {
	return State(f.state.Load())
}

// Done is closed once the unit reached a terminal state.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) setState(s State) {
	f.state.Store(int32(s))
}

// complete records the terminal state exactly once and wakes the waiters.
func (f *Future) complete(txnID uint64, err error) {
	f.doneOnce.Do(func() {
		f.txnID = txnID
		f.err = err
		if err != nil {
			f.setState(Failed)
		} else {
			f.setState(Committed)
		}
		close(f.done)
	})
}

// result is only valid after done is closed.
func (f *Future) result() Result {
	return Result{
		ID:    f.id,
		Name:  f.name,
		State: f.State(),
		TxnID: f.txnID,
	}
}
