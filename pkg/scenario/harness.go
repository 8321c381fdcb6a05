package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	icommon "github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/dr0pdb/icecanegraph/pkg/common"
	"github.com/dr0pdb/icecanegraph/pkg/graph"
	"github.com/dr0pdb/icecanegraph/pkg/mapper"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	"github.com/dr0pdb/icecanegraph/pkg/query"
	"github.com/dr0pdb/icecanegraph/pkg/storage"
	"github.com/dr0pdb/icecanegraph/pkg/worker"
	log "github.com/sirupsen/logrus"
)

const (
	// Label carried by the nodes the workers create.
	Label = "Test"

	// UIDProperty is the property holding the uid of a created node.
	UIDProperty = "uid"
)

// uidQuery returns the uids of the labeled nodes in creation order.
var uidQuery = query.Query{
	Label:   Label,
	Exists:  []string{UIDProperty},
	OrderBy: query.OrderByID,
	Return:  []string{UIDProperty},
}

// Harness owns everything a reproduction run needs. Nothing is shared between harnesses.
type Harness struct {
	conf *common.GraphConfig

	storage  *storage.Storage
	mgr      *mvcc.TransactionManager
	store    *graph.Store
	executor *query.Executor
	pool     *worker.Pool
	template *mapper.Template
}

// NewHarness creates the storage, transaction manager, graph store, executor, worker
// pool and template described by conf. Call Close to release them.
func NewHarness(conf *common.GraphConfig) (*Harness, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	isolation, err := mvcc.ParseIsolationLevel(conf.Isolation)
	if err != nil {
		return nil, err
	}

	s, err := storage.NewStorage(&storage.Options{SkipListHeight: conf.SkipListHeight})
	if err != nil {
		return nil, err
	}

	mgr := mvcc.NewTransactionManager(s, isolation)
	store := graph.NewStore()

	log.WithFields(log.Fields{"workers": conf.Workers, "isolation": conf.Isolation}).Info("scenario::harness::NewHarness; created")

	return &Harness{
		conf:     conf,
		storage:  s,
		mgr:      mgr,
		store:    store,
		executor: query.NewExecutor(store),
		pool:     worker.NewPool(mgr, conf.Workers, worker.WithAwaitTimeout(conf.AwaitTimeout)),
		template: mapper.NewTemplate(mgr, store),
	}, nil
}

// Close shuts down the pool and closes the storage.
func (h *Harness) Close() error {
	h.pool.Shutdown()
	return h.storage.Close()
}

// Manager returns the transaction manager of the harness.
func (h *Harness) Manager() *mvcc.TransactionManager {
	return h.mgr
}

// Template returns the object mapping template of the harness.
func (h *Harness) Template() *mapper.Template {
	return h.template
}

// ForkedCreateNode creates a labeled node with the uid on a worker and awaits it.
// The worker never joins a transaction carried by ctx.
func (h *Harness) ForkedCreateNode(ctx context.Context, uid string) (worker.Result, error) {
	return h.pool.Run(ctx, "create-"+uid, func(ctx context.Context, txn *mvcc.Transaction) error {
		_, err := h.store.CreateNode(txn, []string{Label}, map[string]interface{}{UIDProperty: uid})
		return err
	})
}

// FailingForkedCreateNode is ForkedCreateNode with a unit whose transaction can not commit.
// The unit creates the node and then rolls back a handle joined to its own transaction,
// which leaves that transaction rollback-only.
func (h *Harness) FailingForkedCreateNode(ctx context.Context, uid string) (worker.Result, error) {
	return h.pool.Run(ctx, "create-"+uid, func(ctx context.Context, txn *mvcc.Transaction) error {
		if _, err := h.store.CreateNode(txn, []string{Label}, map[string]interface{}{UIDProperty: uid}); err != nil {
			return err
		}
		nested, err := h.mgr.Join(ctx)
		if err != nil {
			return err
		}
		return nested.Rollback()
	})
}

// UIDs returns the uids of the labeled nodes visible to txn in creation order.
func (h *Harness) UIDs(ctx context.Context, txn *mvcc.Transaction) ([]string, error) {
	res, err := h.executor.Execute(ctx, txn, uidQuery)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return res.Strings(UIDProperty)
}

// DumpNodes renders every node visible to txn, one per line.
func (h *Harness) DumpNodes(txn *mvcc.Transaction) (string, error) {
	itr, err := h.store.AllNodes(txn)
	if err != nil {
		return "", err
	}
	defer itr.Close()

	var b strings.Builder
	for itr.Next() {
		n := itr.Node()
		fmt.Fprintf(&b, "(%d:%s %v)\n", n.ID, strings.Join(n.Labels, ":"), n.Properties)
	}
	return b.String(), itr.Err()
}

// Observation is one query result seen during a run.
type Observation struct {
	Step     string
	Expected []string
	Actual   []string
}

// Report is the outcome of a run.
type Report struct {
	Isolation    string
	Saved        bool
	SavedChild   bool
	Observations []Observation
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "isolation=%s save=%t child=%t\n", r.Isolation, r.Saved, r.SavedChild)
	for _, o := range r.Observations {
		status := "ok"
		if !equal(o.Expected, o.Actual) {
			status = "MISMATCH"
		}
		fmt.Fprintf(&b, "  %-24s %-8s expected=%v actual=%v\n", o.Step, status, o.Expected, o.Actual)
	}
	return b.String()
}

// observe queries the uids and records them against the expected ones.
// returns ScenarioMismatchError on a deviation.
func (h *Harness) observe(ctx context.Context, txn *mvcc.Transaction, r *Report, step string, expected []string) error {
	actual, err := h.UIDs(ctx, txn)
	if err != nil {
		return err
	}
	r.Observations = append(r.Observations, Observation{Step: step, Expected: expected, Actual: actual})

	if !equal(expected, actual) {
		log.WithFields(log.Fields{"step": step, "expected": expected, "actual": actual}).Error("scenario::harness::observe; unexpected uids")
		return icommon.NewScenarioMismatchError(fmt.Sprintf("unexpected uids after %s", step), expected, actual)
	}
	log.WithFields(log.Fields{"step": step, "uids": actual}).Debug("scenario::harness::observe; uids as expected")
	return nil
}

// finish ends the outer txn: committed if the run succeeded, rolled back otherwise.
func finish(outer *mvcc.Transaction, runErr error) error {
	if runErr != nil {
		if err := outer.Rollback(); err != nil {
			log.WithError(err).Debug("scenario::harness::finish; rollback after failure")
		}
		return runErr
	}
	return outer.Commit()
}

// isWorkerFailure returns true if err reports a failed unit of work.
func isWorkerFailure(err error) bool {
	var wfe icommon.WorkerFailureError
	return errors.As(err, &wfe)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
