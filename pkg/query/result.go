package query

import (
	"context"
	"fmt"

	"github.com/dr0pdb/icecanegraph/pkg/graph"
)

// Result is a lazy sequence of rows.
// It is exhausted once Next returns false and can not be restarted.
//
// It is not safe for concurrent use.
type Result struct {
	ctx  context.Context
	plan *planNode
	itr  *graph.NodeIterator

	row    Row
	err    error
	closed bool
}

func newResult(ctx context.Context, plan *planNode, itr *graph.NodeIterator) *Result {
	return &Result{
		ctx:  ctx,
		plan: plan,
		itr:  itr,
	}
}

// Columns returns the projected columns in query order.
func (r *Result) Columns() []string {
	return r.plan.columns
}

// Next advances to the next matching row.
func (r *Result) Next() bool {
	if r.closed {
		return false
	}
	for {
		if err := r.ctx.Err(); err != nil {
			r.err = err
			r.Close()
			return false
		}
		if !r.itr.Next() {
			r.err = r.itr.Err()
			r.Close()
			return false
		}
		n := r.itr.Node()
		if r.plan.matches(n) {
			r.row = r.plan.project(n)
			return true
		}
	}
}

// Row returns the current row.
func (r *Result) Row() Row {
	return r.row
}

// Err returns the error that stopped the result, if any.
func (r *Result) Err() error {
	return r.err
}

// Close releases the result. It is safe to call more than once.
func (r *Result) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.row = nil
	r.itr.Close()
}

// Collect materializes the remaining rows.
func (r *Result) Collect() ([]Row, error) {
	var rows []Row
	for r.Next() {
		rows = append(rows, r.Row())
	}
	return rows, r.Err()
}

// Strings materializes the remaining values of a string column.
// returns an error if the column was not returned or a value is not a string.
func (r *Result) Strings(column string) ([]string, error) {
	found := false
	for _, c := range r.plan.columns {
		if c == column {
			found = true
			break
		}
	}
	if !found {
		r.Close()
		return nil, fmt.Errorf("column %q is not returned by the query", column)
	}

	out := []string{}
	for r.Next() {
		v := r.Row()[column]
		s, ok := v.(string)
		if !ok {
			r.Close()
			return nil, fmt.Errorf("column %q holds %T, not a string", column, v)
		}
		out = append(out, s)
	}
	return out, r.Err()
}
