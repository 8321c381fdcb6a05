package scenario

import (
	"context"
	"fmt"

	"github.com/dr0pdb/icecanegraph/pkg/mapper"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
	log "github.com/sirupsen/logrus"
)

// Plan describes a nested thread run.
type Plan struct {
	// UIDs are created one by one on workers while the outer txn is open.
	UIDs []string

	// Save performs an unrelated entity save in the outer txn after the first creation.
	Save bool

	// SaveChild gives the saved entity a child, so the save also creates a
	// second node and a relationship.
	SaveChild bool
}

// DefaultPlan creates "a", "b" and "c" with the intervening save of a SampleNode with a child.
func DefaultPlan() Plan {
	return Plan{
		UIDs:      []string{"a", "b", "c"},
		Save:      true,
		SaveChild: true,
	}
}

// RunNestedThread runs DefaultPlan.
func (h *Harness) RunNestedThread(ctx context.Context) (*Report, error) {
	return h.Run(ctx, DefaultPlan())
}

// Run opens an outer txn and, for every uid of the plan, creates a node on a worker and
// queries the uids from the outer txn. Every query must return the uids created so far
// in creation order. The outer txn is committed at the end and the uids are queried
// once more from a new txn.
//
// The report holds every observation made, including the failing one.
func (h *Harness) Run(ctx context.Context, plan Plan) (*Report, error) {
	if len(plan.UIDs) == 0 {
		return nil, fmt.Errorf("plan has no uids")
	}

	log.WithFields(log.Fields{"uids": plan.UIDs, "save": plan.Save, "child": plan.SaveChild}).Info("scenario::scenario::Run; started")

	report := &Report{Isolation: h.mgr.Isolation().String(), Saved: plan.Save, SavedChild: plan.Save && plan.SaveChild}

	outer, err := h.mgr.Begin(ctx)
	if err != nil {
		return report, err
	}
	octx := mvcc.WithTransaction(ctx, outer)

	err = h.runNested(octx, outer, plan, report)
	if err = finish(outer, err); err != nil {
		return report, err
	}

	if err := h.verifyCommitted(ctx, report, "after outer commit", plan.UIDs); err != nil {
		return report, err
	}

	log.WithFields(log.Fields{"observations": len(report.Observations)}).Info("scenario::scenario::Run; passed")
	return report, nil
}

func (h *Harness) runNested(ctx context.Context, outer *mvcc.Transaction, plan Plan, report *Report) error {
	for i, uid := range plan.UIDs {
		if _, err := h.ForkedCreateNode(ctx, uid); err != nil {
			return err
		}
		if err := h.observe(ctx, outer, report, "create "+uid, plan.UIDs[:i+1]); err != nil {
			return err
		}

		if i == 0 && plan.Save {
			entity := &mapper.SampleNode{}
			if plan.SaveChild {
				entity.Child = &mapper.SampleNode{}
			}
			if err := h.template.Save(ctx, entity); err != nil {
				return err
			}
			if err := h.observe(ctx, outer, report, "save SampleNode", plan.UIDs[:1]); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunFailedCommit creates "a", then "b" on a worker whose commit fails, then "c".
// The failure must be reported and "b" must never be visible.
func (h *Harness) RunFailedCommit(ctx context.Context) (*Report, error) {
	log.Info("scenario::scenario::RunFailedCommit; started")

	report := &Report{Isolation: h.mgr.Isolation().String()}

	outer, err := h.mgr.Begin(ctx)
	if err != nil {
		return report, err
	}
	octx := mvcc.WithTransaction(ctx, outer)

	err = h.runFailedCommit(octx, outer, report)
	if err = finish(outer, err); err != nil {
		return report, err
	}

	if err := h.verifyCommitted(ctx, report, "after outer commit", []string{"a", "c"}); err != nil {
		return report, err
	}
	return report, nil
}

func (h *Harness) runFailedCommit(ctx context.Context, outer *mvcc.Transaction, report *Report) error {
	if _, err := h.ForkedCreateNode(ctx, "a"); err != nil {
		return err
	}
	if err := h.observe(ctx, outer, report, "create a", []string{"a"}); err != nil {
		return err
	}

	_, err := h.FailingForkedCreateNode(ctx, "b")
	if !isWorkerFailure(err) {
		return fmt.Errorf("expected a worker failure for b, got %v", err)
	}
	log.WithError(err).Info("scenario::scenario::runFailedCommit; worker failure reported")
	if err := h.observe(ctx, outer, report, "failed create b", []string{"a"}); err != nil {
		return err
	}

	if _, err := h.ForkedCreateNode(ctx, "c"); err != nil {
		return err
	}
	return h.observe(ctx, outer, report, "create c", []string{"a", "c"})
}

// verifyCommitted queries from a new txn.
func (h *Harness) verifyCommitted(ctx context.Context, report *Report, step string, expected []string) error {
	txn, err := h.mgr.Begin(ctx)
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return h.observe(ctx, txn, report, step, expected)
}
