package mvcc

import (
	"fmt"
	"sync"

	"github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/dr0pdb/icecanegraph/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// TxnState is the lifecycle state of a transaction.
type TxnState int32

const (
	// Active txns accept reads and writes.
	Active TxnState = iota
	// Committed txns have applied their write-set.
	Committed
	// RolledBack txns have discarded their write-set.
	RolledBack
)

func (s TxnState) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Transaction is the MVCC transaction.
// It buffers writes in memory and applies them atomically on commit.
//
// A nested transaction (see TransactionManager.Join) has a non-nil outer txn and
// forwards all reads and writes to it.
type Transaction struct {
	// unique transaction id
	id uint64

	// mgr is the TransactionManager that this txn was created from.
	// required to inform it once the txn is committed/aborted.
	mgr *TransactionManager

	// The underlying storage
	storage *storage.Storage

	// snapshot taken at begin. Reads use it under Snapshot isolation and commits
	// use it for conflict detection.
	snapshot  *storage.Snapshot
	isolation IsolationLevel

	// outer is the txn a nested handle was joined to.
	outer *Transaction

	mu    sync.Mutex
	state TxnState

	// sets are the writes done in this txn, keyed by the user key.
	sets map[string][]byte

	// rollbackOnly is set when a nested handle rolled back. Commit will fail.
	rollbackOnly bool
}

// newTransaction creates a new transaction.
func newTransaction(id uint64, mgr *TransactionManager, storage *storage.Storage, snapshot *storage.Snapshot, isolation IsolationLevel) *Transaction {
	return &Transaction{
		id:        id,
		mgr:       mgr,
		storage:   storage,
		snapshot:  snapshot,
		isolation: isolation,
		state:     Active,
		sets:      make(map[string][]byte),
	}
}

// newNestedTransaction creates a handle joined to the outer txn.
func newNestedTransaction(outer *Transaction) *Transaction {
	return &Transaction{
		id:        outer.id,
		mgr:       outer.mgr,
		storage:   outer.storage,
		snapshot:  outer.snapshot,
		isolation: outer.isolation,
		outer:     outer,
		state:     Active,
	}
}

// ID returns the id of the txn. A nested handle reports the id of the txn it joined.
func (t *Transaction) ID() uint64 {
	return t.id
}

// Nested returns true for handles obtained by joining another txn.
func (t *Transaction) Nested() bool {
	return t.outer != nil
}

// State returns the lifecycle state of the txn.
func (t *Transaction) State() TxnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsActive returns true if the txn accepts reads and writes.
func (t *Transaction) IsActive() bool {
	return t.State() == Active
}

// Commit commits the transaction.
//
// Committing a nested handle only closes the handle; the writes are applied when the outer txn commits.
// A failed commit leaves the txn rolled back and the storage untouched.
func (t *Transaction) Commit() error {
	log.WithFields(log.Fields{
		"id":     t.id,
		"nested": t.Nested(),
	}).Debug("mvcc::transaction::Commit; started")

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureActive(); err != nil {
		return err
	}

	if t.outer != nil {
		t.state = Committed
		return nil
	}

	if t.rollbackOnly {
		t.discard()
		t.mgr.finish(t.id)
		return common.NewTransactionCommitError(fmt.Sprintf("txn %d was marked rollback-only by a nested txn", t.id), nil)
	}

	if err := t.mgr.commitTxn(t); err != nil {
		t.discard()
		return err
	}

	t.state = Committed
	t.sets = nil
	return nil
}

// Rollback rolls back the transaction.
// Rolling back a nested handle marks the outer txn rollback-only.
func (t *Transaction) Rollback() error {
	log.WithFields(log.Fields{
		"id":     t.id,
		"nested": t.Nested(),
	}).Debug("mvcc::transaction::Rollback; started")

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureActive(); err != nil {
		return err
	}

	if t.outer != nil {
		t.state = RolledBack
		t.outer.markRollbackOnly()
		return nil
	}

	// Since every write is buffered in memory, we can just drop the write-set.
	t.discard()
	t.mgr.finish(t.id)
	return nil
}

// Set overwrites the data if the key already exists.
// The write stays private to the txn until commit.
func (t *Transaction) Set(key, value []byte) error {
	if t.outer != nil {
		if err := t.checkNested(); err != nil {
			return err
		}
		return t.outer.Set(key, value)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureActive(); err != nil {
		return err
	}

	t.sets[string(key)] = append([]byte(nil), value...)
	return nil
}

// Get returns the value associated with the given key.
// returns NotFoundError if the key is not found.
func (t *Transaction) Get(key []byte) ([]byte, error) {
	if t.outer != nil {
		if err := t.checkNested(); err != nil {
			return nil, err
		}
		return t.outer.Get(key)
	}

	t.mu.Lock()
	if err := t.ensureActive(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	value, found := t.sets[string(key)]
	t.mu.Unlock()

	if found {
		return value, nil
	}

	// This key hasn't been modified in this txn, so read from the committed state.
	return t.storage.Get(key, mapReadOptsToStorageReadOpts(t.isolation, t.snapshot))
}

// NewIterator returns an iterator over the keys visible to the txn.
// The visible committed state is fixed when the iterator is created; so are the txn's own writes.
func (t *Transaction) NewIterator() (*Iterator, error) {
	if t.outer != nil {
		if err := t.checkNested(); err != nil {
			return nil, err
		}
		return t.outer.NewIterator()
	}

	t.mu.Lock()
	if err := t.ensureActive(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	keys, values := sortedWrites(t.sets)
	t.mu.Unlock()

	base, err := t.storage.NewIterator(mapReadOptsToStorageReadOpts(t.isolation, t.snapshot))
	if err != nil {
		return nil, err
	}
	return newIterator(base, keys, values), nil
}

// checkNested ensures a nested handle itself is still open.
func (t *Transaction) checkNested() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureActive()
}

func (t *Transaction) markRollbackOnly() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbackOnly = true
}

// root returns the txn owning the write-set.
func (t *Transaction) root() *Transaction {
	if t.outer != nil {
		return t.outer.root()
	}
	return t
}

// ensureActive assumes that the lock on txn is already held.
func (t *Transaction) ensureActive() error {
	if t.state != Active {
		return common.NewInvalidStateError(fmt.Sprintf("txn %d is %s", t.id, t.state))
	}
	return nil
}

// discard assumes that the lock on txn is already held.
func (t *Transaction) discard() {
	t.state = RolledBack
	t.sets = nil
}
