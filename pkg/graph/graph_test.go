package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	"github.com/dr0pdb/icecanegraph/pkg/storage"
	"github.com/dr0pdb/icecanegraph/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphTestHarness struct {
	storage *storage.Storage
	mgr     *mvcc.TransactionManager
	store   *Store
}

func newGraphTestHarness(t *testing.T) *graphTestHarness {
	s, err := storage.NewStorage(nil)
	require.Nil(t, err, "Unexpected error while creating storage")
	return &graphTestHarness{
		storage: s,
		mgr:     mvcc.NewTransactionManager(s, mvcc.ReadCommitted),
		store:   NewStore(),
	}
}

func (h *graphTestHarness) cleanup() {
	h.storage.Close()
}

func (h *graphTestHarness) begin(t *testing.T) *mvcc.Transaction {
	txn, err := h.mgr.Begin(context.Background())
	require.Nil(t, err, "Unexpected error while beginning a txn")
	return txn
}

func (h *graphTestHarness) createCommitted(t *testing.T, labels []string, props map[string]interface{}) NodeID {
	txn := h.begin(t)
	id, err := h.store.CreateNode(txn, labels, props)
	require.Nil(t, err, "Unexpected error while creating a node")
	require.Nil(t, txn.Commit(), "Unexpected error during commit")
	return id
}

func collectUIDs(t *testing.T, itr *NodeIterator) []string {
	var uids []string
	for itr.Next() {
		uid, _ := itr.Node().Property("uid")
		uids = append(uids, uid.(string))
	}
	require.Nil(t, itr.Err(), "Unexpected error during iteration")
	return uids
}

func TestCreateAndReadNode(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	txn := h.begin(t)
	id, err := h.store.CreateNode(txn, []string{"B", "A", "B"}, map[string]interface{}{
		"uid":   "a",
		"count": 3,
		"ratio": float32(0.5),
		"ok":    true,
	})
	assert.Nil(t, err)
	assert.Equal(t, NodeID(0), id, "first node id should be 0")

	n, err := h.store.ReadNode(txn, id)
	assert.Nil(t, err, "own write should be visible")
	assert.Equal(t, []string{"A", "B"}, n.Labels)
	assert.True(t, n.HasLabel("A"))
	assert.False(t, n.HasLabel("C"))
	assert.Equal(t, "a", n.Properties["uid"])
	assert.Equal(t, int64(3), n.Properties["count"])
	assert.Equal(t, float64(0.5), n.Properties["ratio"])
	assert.Equal(t, true, n.Properties["ok"])

	require.Nil(t, txn.Commit())

	reader := h.begin(t)
	n, err = h.store.ReadNode(reader, id)
	assert.Nil(t, err, "committed node should be visible")
	assert.Equal(t, int64(3), n.Properties["count"], "integer kind should survive the codec")
}

func TestUncommittedNodeIsInvisible(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	writer := h.begin(t)
	id, err := h.store.CreateNode(writer, []string{test.TestLabel}, map[string]interface{}{"uid": "a"})
	require.Nil(t, err)

	reader := h.begin(t)
	_, err = h.store.ReadNode(reader, id)
	var nf common.NotFoundError
	assert.True(t, errors.As(err, &nf), "uncommitted node should not be visible to other txns")

	itr, err := h.store.NodesByLabel(reader, test.TestLabel)
	require.Nil(t, err)
	assert.Empty(t, collectUIDs(t, itr))
}

func TestCreateNodeOnFinishedTxn(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	txn := h.begin(t)
	require.Nil(t, txn.Rollback())

	_, err := h.store.CreateNode(txn, []string{test.TestLabel}, nil)
	var ise common.InvalidStateError
	assert.True(t, errors.As(err, &ise), "expected InvalidStateError, got %v", err)
}

func TestNodeIDsNeverReused(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	txn := h.begin(t)
	first, err := h.store.CreateNode(txn, []string{test.TestLabel}, nil)
	require.Nil(t, err)
	require.Nil(t, txn.Rollback())

	second := h.createCommitted(t, []string{test.TestLabel}, nil)
	assert.Equal(t, first+1, second, "rolled back id should not be reused")
}

func TestInvalidProperties(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	txn := h.begin(t)
	var ipe common.InvalidPropertyError

	_, err := h.store.CreateNode(txn, nil, map[string]interface{}{"list": []string{"x"}})
	assert.True(t, errors.As(err, &ipe), "slices are not scalar")

	_, err = h.store.CreateNode(txn, nil, map[string]interface{}{"big": uint64(1 << 63)})
	assert.True(t, errors.As(err, &ipe), "uint64 overflowing int64 should be rejected")

	_, err = h.store.CreateNode(txn, []string{"bad\x00label"}, nil)
	assert.True(t, errors.As(err, &ipe), "labels with NUL should be rejected")

	_, err = h.store.CreateNode(txn, nil, map[string]interface{}{"": "x"})
	assert.True(t, errors.As(err, &ipe), "empty property keys should be rejected")
}

func TestSetProperty(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	id := h.createCommitted(t, []string{test.TestLabel}, map[string]interface{}{"uid": "a"})

	txn := h.begin(t)
	assert.Nil(t, h.store.SetProperty(txn, id, "uid", "z"))
	assert.Nil(t, h.store.SetProperty(txn, id, "n", 7))

	other := h.begin(t)
	n, err := h.store.ReadNode(other, id)
	require.Nil(t, err)
	assert.Equal(t, "a", n.Properties["uid"], "uncommitted mutation should not be visible")

	require.Nil(t, txn.Commit())

	n, err = h.store.ReadNode(other, id)
	require.Nil(t, err)
	assert.Equal(t, "z", n.Properties["uid"], "read committed should see the new value")
	assert.Equal(t, int64(7), n.Properties["n"])

	err = h.store.SetProperty(other, NodeID(42), "uid", "x")
	var nf common.NotFoundError
	assert.True(t, errors.As(err, &nf), "expected NotFoundError for a missing node")
}

func TestRelationships(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	a := h.createCommitted(t, []string{"SampleNode"}, nil)

	txn := h.begin(t)
	b, err := h.store.CreateNode(txn, []string{"SampleNode"}, nil)
	require.Nil(t, err)

	rid, err := h.store.CreateRelationship(txn, "child", a, b, map[string]interface{}{"w": 1})
	require.Nil(t, err, "endpoints created by the same txn should be visible to it")

	r, err := h.store.ReadRelationship(txn, rid)
	require.Nil(t, err)
	assert.Equal(t, "child", r.Type)
	assert.Equal(t, a, r.Start)
	assert.Equal(t, b, r.End)
	assert.Equal(t, int64(1), r.Properties["w"])

	_, err = h.store.CreateRelationship(txn, "child", a, NodeID(99), nil)
	var nf common.NotFoundError
	assert.True(t, errors.As(err, &nf), "missing endpoint should fail")

	require.Nil(t, txn.Commit())

	_, err = h.store.ReadRelationship(h.begin(t), RelationshipID(99))
	assert.True(t, errors.As(err, &nf))
}

func TestNodesByLabelOrdering(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	for _, uid := range test.TestUIDs {
		h.createCommitted(t, []string{test.TestLabel}, map[string]interface{}{"uid": uid})
		h.createCommitted(t, []string{"Other"}, map[string]interface{}{"uid": "other-" + uid})
	}

	// a label sharing the prefix must not leak into the scan.
	h.createCommitted(t, []string{test.TestLabel + "s"}, map[string]interface{}{"uid": "x"})

	txn := h.begin(t)
	itr, err := h.store.NodesByLabel(txn, test.TestLabel)
	require.Nil(t, err)
	assert.Equal(t, test.TestUIDs, collectUIDs(t, itr))
	assert.False(t, itr.Next(), "an exhausted iterator should stay exhausted")

	itr, err = h.store.AllNodes(txn)
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "other-a", "b", "other-b", "c", "other-c", "x"}, collectUIDs(t, itr))
}

func TestNodesByLabelSeesOwnWrites(t *testing.T) {
	h := newGraphTestHarness(t)
	defer h.cleanup()

	h.createCommitted(t, []string{test.TestLabel}, map[string]interface{}{"uid": "a"})

	txn := h.begin(t)
	_, err := h.store.CreateNode(txn, []string{test.TestLabel}, map[string]interface{}{"uid": "b"})
	require.Nil(t, err)

	itr, err := h.store.NodesByLabel(txn, test.TestLabel)
	require.Nil(t, err)
	assert.Equal(t, []string{"a", "b"}, collectUIDs(t, itr))
}

func TestCodecIsDeterministic(t *testing.T) {
	n := &Node{ID: 3, Labels: []string{"A"}, Properties: map[string]interface{}{"z": int64(1), "a": "x", "m": 2.5, "b": false}}

	first, err := encodeNode(n)
	require.Nil(t, err)
	for i := 0; i < 10; i++ {
		again, err := encodeNode(n)
		require.Nil(t, err)
		assert.Equal(t, first, again, "encoding should not depend on map order")
	}

	decoded, err := decodeNode(first)
	require.Nil(t, err)
	assert.Equal(t, n, decoded)
}
