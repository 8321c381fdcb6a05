package query

import (
	"fmt"
)

// OrderKey is the order of the result rows.
type OrderKey int

const (
	// OrderByID orders rows by node id ascending, which is creation order.
	OrderByID OrderKey = iota
)

func (o OrderKey) String() string {
	switch o {
	case OrderByID:
		return "id"
	}
	return fmt.Sprintf("order(%d)", int(o))
}

// IDColumn can be used in Query.Return to project the node id.
const IDColumn = "id()"

// Query matches nodes carrying Label that have every property in Exists.
// An empty Label matches all nodes.
// Return names the properties projected into each row.
type Query struct {
	Label   string
	Exists  []string
	OrderBy OrderKey
	Return  []string
}

// validate checks the query before planning.
func (q Query) validate() error {
	if q.OrderBy != OrderByID {
		return fmt.Errorf("unsupported order key %s", q.OrderBy)
	}
	if len(q.Return) == 0 {
		return fmt.Errorf("query must return at least one column")
	}
	seen := make(map[string]bool, len(q.Return))
	for _, c := range q.Return {
		if c == "" {
			return fmt.Errorf("empty return column")
		}
		if seen[c] {
			return fmt.Errorf("duplicate return column %q", c)
		}
		seen[c] = true
	}
	for _, e := range q.Exists {
		if e == "" {
			return fmt.Errorf("empty property in exists filter")
		}
	}
	return nil
}

// Row is a single result row keyed by the returned column.
// Missing properties project to nil.
type Row map[string]interface{}
