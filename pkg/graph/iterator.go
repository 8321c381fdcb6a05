package graph

import (
	"bytes"
	"fmt"

	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
)

// NodeIterator walks nodes in id order.
// It is exhausted after Next returns false and can not be restarted.
//
// It is not safe for concurrent use.
type NodeIterator struct {
	store  *Store
	txn    *mvcc.Transaction
	itr    *mvcc.Iterator
	prefix []byte

	// index entries only carry the id; the node is read through the txn.
	index bool

	started bool
	done    bool
	node    *Node
	err     error
}

func newNodeIterator(store *Store, txn *mvcc.Transaction, itr *mvcc.Iterator, prefix []byte, index bool) *NodeIterator {
	return &NodeIterator{
		store:  store,
		txn:    txn,
		itr:    itr,
		prefix: prefix,
		index:  index,
	}
}

// Next advances to the next node. It returns false when the nodes are exhausted or on error.
func (ni *NodeIterator) Next() bool {
	if ni.done {
		return false
	}

	if !ni.started {
		ni.started = true
		ni.itr.Seek(ni.prefix)
	} else {
		ni.itr.Next()
	}

	if !ni.itr.Valid() || !bytes.HasPrefix(ni.itr.Key(), ni.prefix) || len(ni.itr.Key()) != len(ni.prefix)+8 {
		return ni.finish(nil)
	}

	id := idFromKey(ni.itr.Key())
	if ni.index {
		n, err := ni.store.ReadNode(ni.txn, id)
		if err != nil {
			return ni.finish(err)
		}
		ni.node = n
		return true
	}

	n, err := decodeNode(ni.itr.Value())
	if err != nil {
		return ni.finish(fmt.Errorf("node %d: corrupt record: %w", id, err))
	}
	ni.node = n
	return true
}

// Node returns the node at the current position.
func (ni *NodeIterator) Node() *Node {
	return ni.node
}

// Err returns the error that stopped the iteration, if any.
func (ni *NodeIterator) Err() error {
	return ni.err
}

// Close releases the iterator. Next returns false afterwards.
func (ni *NodeIterator) Close() {
	ni.finish(nil)
}

func (ni *NodeIterator) finish(err error) bool {
	ni.done = true
	ni.node = nil
	if ni.err == nil {
		ni.err = err
	}
	return false
}
