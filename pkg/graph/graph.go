package graph

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	log "github.com/sirupsen/logrus"
)

/*
	The graph is laid out on the versioned key-value store with one record per node
	and per relationship. Every label of a node gets an empty index entry so that
	all nodes of a label can be scanned in id order without decoding other nodes.

	All mutations go to the write-set of the txn passed in. Nothing is visible to
	other txns before that txn commits.
*/

// Store is the graph store on top of the transaction manager.
// It is safe for concurrent use; isolation is provided by the txns.
type Store struct {
	// next ids to hand out. ids are consumed even if the txn rolls back.
	nextNodeID         uint64
	nextRelationshipID uint64
}

// CreateNode creates a node with the labels and properties in the write-set of txn.
// returns the id assigned to the node.
func (s *Store) CreateNode(txn *mvcc.Transaction, labels []string, props map[string]interface{}) (NodeID, error) {
	if err := ensureActive(txn); err != nil {
		return 0, err
	}

	labels, err := normalizeLabels(labels)
	if err != nil {
		return 0, common.NewInvalidPropertyError(err.Error())
	}
	props, err = normalizeProperties(props)
	if err != nil {
		return 0, err
	}

	id := NodeID(atomic.AddUint64(&s.nextNodeID, 1) - 1)
	n := &Node{ID: id, Labels: labels, Properties: props}

	if err := s.writeNode(txn, n); err != nil {
		return 0, err
	}
	for _, l := range labels {
		if err := txn.Set(labelKey(l, id), []byte{}); err != nil {
			return 0, err
		}
	}

	log.WithFields(log.Fields{"txn": txn.ID(), "node": id, "labels": labels}).Debug("graph::graph::CreateNode; done")
	return id, nil
}

// ReadNode returns the node with the id as seen by txn.
// returns NotFoundError if no such node is visible to txn.
func (s *Store) ReadNode(txn *mvcc.Transaction, id NodeID) (*Node, error) {
	data, err := txn.Get(nodeKey(id))
	if err != nil {
		var nf common.NotFoundError
		if errors.As(err, &nf) {
			return nil, common.NewNotFoundError(fmt.Sprintf("node %d not found", id))
		}
		return nil, err
	}

	n, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("node %d: corrupt record: %w", id, err)
	}
	return n, nil
}

// SetProperty sets a property on an existing node in the write-set of txn.
func (s *Store) SetProperty(txn *mvcc.Transaction, id NodeID, key string, value interface{}) error {
	if key == "" {
		return common.NewInvalidPropertyError("property key must not be empty")
	}
	v, err := normalizeValue(key, value)
	if err != nil {
		return err
	}

	n, err := s.ReadNode(txn, id)
	if err != nil {
		return err
	}
	n.Properties[key] = v

	log.WithFields(log.Fields{"txn": txn.ID(), "node": id, "key": key}).Debug("graph::graph::SetProperty; done")
	return s.writeNode(txn, n)
}

// CreateRelationship creates a directed relationship from start to end in the write-set of txn.
// Both nodes must be visible to txn.
func (s *Store) CreateRelationship(txn *mvcc.Transaction, relType string, start, end NodeID, props map[string]interface{}) (RelationshipID, error) {
	if err := ensureActive(txn); err != nil {
		return 0, err
	}
	if relType == "" {
		return 0, common.NewInvalidPropertyError("relationship type must not be empty")
	}
	props, err := normalizeProperties(props)
	if err != nil {
		return 0, err
	}

	for _, nid := range []NodeID{start, end} {
		if _, err := s.ReadNode(txn, nid); err != nil {
			return 0, err
		}
	}

	id := RelationshipID(atomic.AddUint64(&s.nextRelationshipID, 1) - 1)
	r := &Relationship{ID: id, Type: relType, Start: start, End: end, Properties: props}
	data, err := encodeRelationship(r)
	if err != nil {
		return 0, err
	}
	if err := txn.Set(relationshipKey(id), data); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"txn": txn.ID(), "relationship": id, "type": relType}).Debug("graph::graph::CreateRelationship; done")
	return id, nil
}

// ReadRelationship returns the relationship with the id as seen by txn.
// returns NotFoundError if no such relationship is visible to txn.
func (s *Store) ReadRelationship(txn *mvcc.Transaction, id RelationshipID) (*Relationship, error) {
	data, err := txn.Get(relationshipKey(id))
	if err != nil {
		var nf common.NotFoundError
		if errors.As(err, &nf) {
			return nil, common.NewNotFoundError(fmt.Sprintf("relationship %d not found", id))
		}
		return nil, err
	}

	r, err := decodeRelationship(data)
	if err != nil {
		return nil, fmt.Errorf("relationship %d: corrupt record: %w", id, err)
	}
	return r, nil
}

// NodesByLabel returns an iterator over the nodes carrying the label in id order.
func (s *Store) NodesByLabel(txn *mvcc.Transaction, label string) (*NodeIterator, error) {
	if err := validateLabel(label); err != nil {
		return nil, common.NewInvalidPropertyError(err.Error())
	}
	itr, err := txn.NewIterator()
	if err != nil {
		return nil, err
	}
	return newNodeIterator(s, txn, itr, labelPrefix(label), true), nil
}

// AllNodes returns an iterator over every node visible to txn in id order.
func (s *Store) AllNodes(txn *mvcc.Transaction) (*NodeIterator, error) {
	itr, err := txn.NewIterator()
	if err != nil {
		return nil, err
	}
	return newNodeIterator(s, txn, itr, []byte{byte(nodeKeyType)}, false), nil
}

func (s *Store) writeNode(txn *mvcc.Transaction, n *Node) error {
	data, err := encodeNode(n)
	if err != nil {
		return err
	}
	return txn.Set(nodeKey(n.ID), data)
}

// ensureActive fails fast so that no id is consumed by a finished txn.
func ensureActive(txn *mvcc.Transaction) error {
	if !txn.IsActive() {
		return common.NewInvalidStateError(fmt.Sprintf("txn %d is %s", txn.ID(), txn.State()))
	}
	return nil
}

// NewStore creates a new empty graph store. The first node id is 0.
func NewStore() *Store {
	return &Store{}
}
