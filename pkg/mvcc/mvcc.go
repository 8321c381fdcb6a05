package mvcc

import (
	"context"
	"fmt"
	"sync"

	icommon "github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/dr0pdb/icecanegraph/pkg/storage"
	log "github.com/sirupsen/logrus"
)

/*
	Every read and write goes through a txn. A txn buffers its writes in a write-set
	and applies all of them as a single storage write batch on commit, so the writes
	of a txn become visible to other txns all at once.

	Reads see the txn's own write-set first and then the committed state chosen by
	the isolation level: the latest committed state at the time of the read for
	ReadCommitted, or the committed state at begin for Snapshot.

	Txns never inherit each other's write-set. The only way to share one is Join,
	which hands out a nested handle on the txn carried by the context.
*/

// TransactionManager is the Multi Version Concurrency Control layer for transactions.
// Operations on it are thread safe. Commits are serialized.
type TransactionManager struct {
	mu *sync.RWMutex

	// commitMu makes the conflict check and the storage write of a commit atomic.
	commitMu sync.Mutex

	nextTxnID uint64

	// active transactions at the present moment.
	activeTxn map[uint64]*Transaction

	storage   *storage.Storage
	isolation IsolationLevel
}

// Begin begins a new independent transaction.
// It never joins a transaction carried by ctx; use Join for that.
func (m *TransactionManager) Begin(ctx context.Context) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.getNextTxnID()
	txn := newTransaction(id, m, m.storage, m.storage.GetSnapshot(), m.isolation)
	m.activeTxn[id] = txn

	log.WithFields(log.Fields{"id": id, "isolation": m.isolation.String()}).Debug("mvcc::mvcc::Begin; done")
	return txn, nil
}

// Join returns a nested handle on the active transaction carried by ctx.
// The handle shares the outer write-set; committing it is a no-op and rolling it back
// marks the outer transaction rollback-only.
// If ctx carries no active transaction, Join begins a new independent one.
func (m *TransactionManager) Join(ctx context.Context) (*Transaction, error) {
	outer, ok := FromContext(ctx)
	if !ok || outer.mgr != m || !outer.IsActive() {
		return m.Begin(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := outer.root()
	log.WithFields(log.Fields{"id": root.id}).Debug("mvcc::mvcc::Join; joined the outer txn")
	return newNestedTransaction(root), nil
}

// ActiveCount returns the number of transactions that are neither committed nor rolled back.
func (m *TransactionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeTxn)
}

// Isolation returns the isolation level of the transactions started by the manager.
func (m *TransactionManager) Isolation() IsolationLevel {
	return m.isolation
}

// commitTxn validates the write-set of the txn and applies it to the storage.
// REQUIRES: the txn lock is held by the caller.
func (m *TransactionManager) commitTxn(t *Transaction) error {
	log.WithFields(log.Fields{"id": t.id, "writes": len(t.sets)}).Debug("mvcc::mvcc::commitTxn; start")

	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	defer m.finish(t.id)

	keys, values := sortedWrites(t.sets)

	if t.isolation == Snapshot {
		// first committer wins: any key committed after our snapshot is a conflict.
		for _, k := range keys {
			latest, err := m.storage.LatestVersion([]byte(k))
			if err != nil {
				if _, ok := err.(icommon.NotFoundError); ok {
					continue
				}
				return icommon.NewTransactionCommitError(fmt.Sprintf("txn %d could not validate its writes", t.id), err)
			}
			if latest > t.snapshot.SeqNumber() {
				log.WithFields(log.Fields{"id": t.id, "key": k}).Info("mvcc::mvcc::commitTxn; found a conflicting commit")
				return icommon.NewConflictError(fmt.Sprintf("txn %d conflicts with a commit at seq %d", t.id, latest), []byte(k))
			}
		}
	}

	wb := &storage.WriteBatch{}
	for _, k := range keys {
		wb.Set([]byte(k), values[k])
	}

	seq, err := m.storage.Write(wb)
	if err != nil {
		log.WithFields(log.Fields{"id": t.id}).Error("mvcc::mvcc::commitTxn; error in writing the batch")
		return icommon.NewTransactionCommitError(fmt.Sprintf("txn %d could not be written", t.id), err)
	}

	log.WithFields(log.Fields{"id": t.id, "seq": seq}).Debug("mvcc::mvcc::commitTxn; committed successfully.")
	return nil
}

// finish removes the txn from the active set.
func (m *TransactionManager) finish(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.activeTxn, id)
}

// getNextTxnID returns the next available txn id.
// IMP: Hold mu before calling this.
func (m *TransactionManager) getNextTxnID() uint64 {
	m.nextTxnID++
	return m.nextTxnID
}

// NewTransactionManager creates a new transactional layer for the storage
func NewTransactionManager(s *storage.Storage, isolation IsolationLevel) *TransactionManager {
	log.WithFields(log.Fields{"isolation": isolation.String()}).Info("mvcc::mvcc::NewTransactionManager; created")
	return &TransactionManager{
		mu:        new(sync.RWMutex),
		activeTxn: make(map[uint64]*Transaction),
		storage:   s,
		isolation: isolation,
	}
}
