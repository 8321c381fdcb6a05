package query

import (
	"github.com/dr0pdb/icecanegraph/pkg/graph"
	"github.com/dr0pdb/icecanegraph/pkg/mvcc"
)

// scanKind is the access path of a plan.
type scanKind int

const (
	fullScan scanKind = iota
	labelScan
)

// planNode is the executable form of a query.
type planNode struct {
	scan    scanKind
	label   string
	exists  []string
	columns []string
}

// open starts the scan of the plan within txn.
func (p *planNode) open(store *graph.Store, txn *mvcc.Transaction) (*graph.NodeIterator, error) {
	if p.scan == labelScan {
		return store.NodesByLabel(txn, p.label)
	}
	return store.AllNodes(txn)
}

// matches applies the exists filter.
func (p *planNode) matches(n *graph.Node) bool {
	for _, e := range p.exists {
		if _, ok := n.Property(e); !ok {
			return false
		}
	}
	return true
}

// project builds the result row of a matched node.
func (p *planNode) project(n *graph.Node) Row {
	row := make(Row, len(p.columns))
	for _, c := range p.columns {
		if c == IDColumn {
			row[c] = uint64(n.ID)
			continue
		}
		v, _ := n.Property(c)
		row[c] = v
	}
	return row
}

// planner derives the plan of a query.
type planner struct {
	q Query

	res *planNode
	err error // errors encountered during the process
}

// plan picks the access path.
func (p *planner) plan() *planner {
	if p.err = p.q.validate(); p.err != nil {
		return p
	}

	p.res = &planNode{
		scan:    fullScan,
		label:   p.q.Label,
		exists:  p.q.Exists,
		columns: p.q.Return,
	}
	if p.q.Label != "" {
		p.res.scan = labelScan
	}
	return p
}

// optimize removes duplicate exists filters.
func (p *planner) optimize() *planner {
	if p.res == nil {
		return p
	}
	seen := make(map[string]bool, len(p.res.exists))
	exists := make([]string, 0, len(p.res.exists))
	for _, e := range p.res.exists {
		if !seen[e] {
			seen[e] = true
			exists = append(exists, e)
		}
	}
	p.res.exists = exists
	return p
}

// get returns the final plan
func (p *planner) get() (*planNode, error) {
	return p.res, p.err
}

func newPlanner(q Query) *planner {
	return &planner{
		q: q,
	}
}
