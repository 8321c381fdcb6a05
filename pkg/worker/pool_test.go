package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	"github.com/dr0pdb/icecanegraph/pkg/storage"
	"github.com/dr0pdb/icecanegraph/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolTestHarness struct {
	storage *storage.Storage
	mgr     *mvcc.TransactionManager
	pool    *Pool
}

func newPoolTestHarness(t *testing.T, size int, opts ...Option) *poolTestHarness {
	s, err := storage.NewStorage(nil)
	require.Nil(t, err, "Unexpected error while creating storage")
	mgr := mvcc.NewTransactionManager(s, mvcc.ReadCommitted)
	return &poolTestHarness{
		storage: s,
		mgr:     mgr,
		pool:    NewPool(mgr, size, opts...),
	}
}

func (h *poolTestHarness) cleanup() {
	h.pool.Shutdown()
	h.storage.Close()
}

func (h *poolTestHarness) read(t *testing.T, key []byte) ([]byte, error) {
	txn, err := h.mgr.Begin(context.Background())
	require.Nil(t, err)
	defer txn.Rollback()
	return txn.Get(key)
}

func setUnit(key, value []byte) Unit {
	return func(ctx context.Context, txn *mvcc.Transaction) error {
		return txn.Set(key, value)
	}
}

func TestUnitCommits(t *testing.T) {
	h := newPoolTestHarness(t, 2)
	defer h.cleanup()

	f, err := h.pool.Submit(context.Background(), "set", setUnit(test.TestKeys[0], test.TestValues[0]))
	require.Nil(t, err)

	res, err := h.pool.Await(context.Background(), f)
	assert.Nil(t, err)
	assert.Equal(t, Committed, res.State)
	assert.Equal(t, Committed, f.State())
	assert.Equal(t, f.ID(), res.ID)
	assert.Equal(t, "set", res.Name)
	assert.NotZero(t, res.TxnID)

	v, err := h.read(t, test.TestKeys[0])
	assert.Nil(t, err)
	assert.Equal(t, test.TestValues[0], v)
}

func TestUnitErrorIsReportedAndRolledBack(t *testing.T) {
	h := newPoolTestHarness(t, 2)
	defer h.cleanup()

	boom := errors.New("boom")
	res, err := h.pool.Run(context.Background(), "fail", func(ctx context.Context, txn *mvcc.Transaction) error {
		if err := txn.Set(test.TestKeys[0], test.TestValues[0]); err != nil {
			return err
		}
		return boom
	})

	var wfe common.WorkerFailureError
	require.True(t, errors.As(err, &wfe), "expected WorkerFailureError, got %v", err)
	assert.Equal(t, "fail", wfe.Unit)
	assert.True(t, errors.Is(err, boom), "the cause should be wrapped")
	assert.Equal(t, Failed, res.State)

	_, err = h.read(t, test.TestKeys[0])
	var nf common.NotFoundError
	assert.True(t, errors.As(err, &nf), "writes of a failed unit should never be visible")
	assert.Equal(t, 0, h.mgr.ActiveCount(), "failed unit should not leak its txn")
}

func TestUnitPanicIsReported(t *testing.T) {
	h := newPoolTestHarness(t, 1)
	defer h.cleanup()

	_, err := h.pool.Run(context.Background(), "panic", func(ctx context.Context, txn *mvcc.Transaction) error {
		panic("unexpected")
	})

	var wfe common.WorkerFailureError
	assert.True(t, errors.As(err, &wfe), "expected WorkerFailureError, got %v", err)

	// the worker must survive the panic.
	res, err := h.pool.Run(context.Background(), "after", setUnit(test.TestKeys[1], test.TestValues[1]))
	assert.Nil(t, err)
	assert.Equal(t, Committed, res.State)
}

func TestCommitFailureIsReported(t *testing.T) {
	h := newPoolTestHarness(t, 1)
	defer h.cleanup()

	_, err := h.pool.Run(context.Background(), "rollback-only", func(ctx context.Context, txn *mvcc.Transaction) error {
		if err := txn.Set(test.TestKeys[0], test.TestValues[0]); err != nil {
			return err
		}
		nested, err := h.mgr.Join(ctx)
		if err != nil {
			return err
		}
		return nested.Rollback()
	})

	var wfe common.WorkerFailureError
	require.True(t, errors.As(err, &wfe), "expected WorkerFailureError, got %v", err)
	var tce common.TransactionCommitError
	assert.True(t, errors.As(err, &tce), "expected the commit error as the cause, got %v", err)

	_, err = h.read(t, test.TestKeys[0])
	var nf common.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestUnitCommittingItsTxnDoesNotFail(t *testing.T) {
	h := newPoolTestHarness(t, 1)
	defer h.cleanup()

	res, err := h.pool.Run(context.Background(), "self-commit", func(ctx context.Context, txn *mvcc.Transaction) error {
		if err := txn.Set(test.TestKeys[0], test.TestValues[0]); err != nil {
			return err
		}
		return txn.Commit()
	})
	require.Nil(t, err, "committing the unit handle should not fail the unit")
	assert.Equal(t, Committed, res.State)

	res, err = h.pool.Run(context.Background(), "ctx-commit", func(ctx context.Context, txn *mvcc.Transaction) error {
		if err := txn.Set(test.TestKeys[1], test.TestValues[1]); err != nil {
			return err
		}
		carried, ok := mvcc.FromContext(ctx)
		if !ok {
			return errors.New("no txn carried by the unit context")
		}
		if !carried.Nested() {
			return errors.New("the unit context carries the pool owned txn")
		}
		return carried.Commit()
	})
	require.Nil(t, err, "committing the carried handle should not fail the unit")
	assert.Equal(t, Committed, res.State)

	for i := 0; i < 2; i++ {
		v, err := h.read(t, test.TestKeys[i])
		assert.Nil(t, err)
		assert.Equal(t, test.TestValues[i], v)
	}
	assert.Equal(t, 0, h.mgr.ActiveCount())
}

func TestUnitNeverSeesSubmitterTxn(t *testing.T) {
	h := newPoolTestHarness(t, 1)
	defer h.cleanup()

	outer, err := h.mgr.Begin(context.Background())
	require.Nil(t, err)
	require.Nil(t, outer.Set(test.TestKeys[0], test.TestValues[0]))
	ctx := mvcc.WithTransaction(context.Background(), outer)

	var joinedID uint64
	_, err = h.pool.Run(ctx, "independent", func(ctx context.Context, txn *mvcc.Transaction) error {
		joined, err := h.mgr.Join(ctx)
		if err != nil {
			return err
		}
		joinedID = joined.ID()
		if _, err := txn.Get(test.TestKeys[0]); err == nil {
			return errors.New("uncommitted write of the submitter is visible")
		}
		return txn.Set(test.TestKeys[1], test.TestValues[1])
	})
	require.Nil(t, err)
	assert.NotEqual(t, outer.ID(), joinedID, "the unit should join its own txn, not the submitter's")

	v, err := outer.Get(test.TestKeys[1])
	assert.Nil(t, err, "commit of the unit should be visible to the open outer txn")
	assert.Equal(t, test.TestValues[1], v)
	assert.Nil(t, outer.Commit())
}

func TestAwaitTimeout(t *testing.T) {
	h := newPoolTestHarness(t, 1, WithAwaitTimeout(20*time.Millisecond))
	defer h.cleanup()

	release := make(chan struct{})
	f, err := h.pool.Submit(context.Background(), "slow", func(ctx context.Context, txn *mvcc.Transaction) error {
		<-release
		return nil
	})
	require.Nil(t, err)

	_, err = h.pool.Await(context.Background(), f)
	var ate common.AwaitTimeoutError
	assert.True(t, errors.As(err, &ate), "expected AwaitTimeoutError, got %v", err)
	assert.False(t, f.State().Terminal())

	close(release)
	<-f.Done()
	res, err := h.pool.Await(context.Background(), f)
	assert.Nil(t, err)
	assert.Equal(t, Committed, res.State)
}

func TestAwaitHonoursContext(t *testing.T) {
	h := newPoolTestHarness(t, 1)
	defer h.cleanup()

	release := make(chan struct{})
	defer close(release)
	f, err := h.pool.Submit(context.Background(), "slow", func(ctx context.Context, txn *mvcc.Transaction) error {
		<-release
		return nil
	})
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = h.pool.Await(ctx, f)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestCancelledUnitDoesNotRun(t *testing.T) {
	h := newPoolTestHarness(t, 1)
	defer h.cleanup()

	release := make(chan struct{})
	blocker, err := h.pool.Submit(context.Background(), "blocker", func(ctx context.Context, txn *mvcc.Transaction) error {
		<-release
		return nil
	})
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	f, err := h.pool.Submit(ctx, "cancelled", func(ctx context.Context, txn *mvcc.Transaction) error {
		ran = true
		return nil
	})
	require.Nil(t, err)
	cancel()
	close(release)

	_, err = h.pool.Await(context.Background(), blocker)
	assert.Nil(t, err)

	<-f.Done()
	var wfe common.WorkerFailureError
	_, err = h.pool.Await(context.Background(), f)
	assert.True(t, errors.As(err, &wfe))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, ran)
}

func TestSubmitAfterShutdown(t *testing.T) {
	h := newPoolTestHarness(t, 2)
	defer h.cleanup()

	h.pool.Shutdown()
	h.pool.Shutdown()

	_, err := h.pool.Submit(context.Background(), "late", setUnit(test.TestKeys[0], test.TestValues[0]))
	var pce common.PoolClosedError
	assert.True(t, errors.As(err, &pce), "expected PoolClosedError, got %v", err)
}

func TestShutdownDrainsQueuedUnits(t *testing.T) {
	h := newPoolTestHarness(t, 2)
	defer h.cleanup()

	var futures []*Future
	for i := range test.TestKeys {
		f, err := h.pool.Submit(context.Background(), "set", setUnit(test.TestKeys[i], test.TestValues[i]))
		require.Nil(t, err)
		futures = append(futures, f)
	}
	h.pool.Shutdown()

	for _, f := range futures {
		assert.Equal(t, Committed, f.State())
	}
	for i := range test.TestKeys {
		v, err := h.read(t, test.TestKeys[i])
		assert.Nil(t, err)
		assert.Equal(t, test.TestValues[i], v)
	}
}

func TestConcurrentSubmitters(t *testing.T) {
	h := newPoolTestHarness(t, DefaultSize)
	defer h.cleanup()

	var wg sync.WaitGroup
	for i := range test.TestKeys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.pool.Run(context.Background(), "set", setUnit(test.TestKeys[i], test.TestUpdatedValues[i]))
			assert.Nil(t, err)
		}(i)
	}
	wg.Wait()

	for i := range test.TestKeys {
		v, err := h.read(t, test.TestKeys[i])
		assert.Nil(t, err)
		assert.Equal(t, test.TestUpdatedValues[i], v)
	}
}

func TestNewPoolDefaultSize(t *testing.T) {
	h := newPoolTestHarness(t, 0)
	defer h.cleanup()
	assert.Equal(t, DefaultSize, h.pool.Size())
}
