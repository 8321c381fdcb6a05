package mapper

import (
	"context"
	"fmt"

	"github.com/dr0pdb/icecanegraph/pkg/graph"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	log "github.com/sirupsen/logrus"
)

// Template saves entities into the graph store.
type Template struct {
	mgr   *mvcc.TransactionManager
	store *graph.Store
}

// Save saves the entity and every entity reachable through its relations.
//
// Save joins the transaction carried by ctx; the writes become visible when that
// transaction commits. Without one, Save runs in its own transaction.
// New entities get a node and one relationship per relation. Saved entities only have
// their properties updated.
func (t *Template) Save(ctx context.Context, e Entity) error {
	txn, err := t.mgr.Join(ctx)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"txn": txn.ID(), "nested": txn.Nested(), "labels": e.Labels()}).Debug("mapper::template::Save; started")

	s := &saver{txn: txn, store: t.store, visiting: make(map[Entity]bool)}
	if err := s.save(e); err != nil {
		log.WithFields(log.Fields{"txn": txn.ID()}).WithError(err).Error("mapper::template::Save; failed, rolling back")
		if rerr := txn.Rollback(); rerr != nil {
			log.WithError(rerr).Debug("mapper::template::Save; rollback after failure")
		}
		return err
	}
	return txn.Commit()
}

// saver walks the entity graph of one Save call.
type saver struct {
	txn      *mvcc.Transaction
	store    *graph.Store
	visiting map[Entity]bool
}

func (s *saver) save(e Entity) error {
	if s.visiting[e] {
		return nil
	}
	s.visiting[e] = true

	if id, ok := e.ID(); ok {
		for k, v := range e.Properties() {
			if err := s.store.SetProperty(s.txn, id, k, v); err != nil {
				return fmt.Errorf("updating node %d: %w", id, err)
			}
		}
		return nil
	}

	id, err := s.store.CreateNode(s.txn, e.Labels(), e.Properties())
	if err != nil {
		return err
	}
	e.SetID(id)

	for _, r := range e.Relations() {
		if r.Target == nil {
			continue
		}
		if err := s.save(r.Target); err != nil {
			return err
		}
		target, _ := r.Target.ID()
		if _, err := s.store.CreateRelationship(s.txn, r.Type, id, target, nil); err != nil {
			return err
		}
	}
	return nil
}

// NewTemplate creates a template saving into store through mgr.
func NewTemplate(mgr *mvcc.TransactionManager, store *graph.Store) *Template {
	return &Template{
		mgr:   mgr,
		store: store,
	}
}
