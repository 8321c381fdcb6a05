package query

import (
	"context"
	"fmt"

	"github.com/dr0pdb/icecanegraph/pkg/graph"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	log "github.com/sirupsen/logrus"
)

// Executor evaluates queries against the graph store.
type Executor struct {
	store *graph.Store
}

// Execute runs the query within txn.
// The rows are read lazily through the visibility rule of txn at the time Execute is called.
func (e *Executor) Execute(ctx context.Context, txn *mvcc.Transaction, q Query) (*Result, error) {
	log.WithFields(log.Fields{"txn": txn.ID(), "label": q.Label, "exists": q.Exists}).Debug("query::executor::Execute; started")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := newPlanner(q).plan().optimize().get()
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	itr, err := plan.open(e.store, txn)
	if err != nil {
		log.WithFields(log.Fields{"txn": txn.ID()}).Error("query::executor::Execute; error in opening the scan")
		return nil, err
	}
	return newResult(ctx, plan, itr), nil
}

// NewExecutor creates an executor over the store.
func NewExecutor(store *graph.Store) *Executor {
	return &Executor{store: store}
}
