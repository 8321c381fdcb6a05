package mvcc

import (
	"fmt"

	"github.com/dr0pdb/icecanegraph/pkg/common"
)

// IsolationLevel decides which committed writes a txn observes.
type IsolationLevel uint8

const (
	// ReadCommitted: every read sees the writes committed before that read, plus the txn's own writes.
	// Concurrent commits to the same key are last-writer-wins.
	ReadCommitted IsolationLevel = iota

	// Snapshot: every read sees the writes committed before the txn began, plus the txn's own writes.
	// Concurrent commits to the same key are first-committer-wins.
	Snapshot
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadCommitted:
		return common.IsolationReadCommitted
	case Snapshot:
		return common.IsolationSnapshot
	}
	return fmt.Sprintf("isolation(%d)", uint8(l))
}

// ParseIsolationLevel parses the config representation of an isolation level.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch s {
	case common.IsolationReadCommitted, "":
		return ReadCommitted, nil
	case common.IsolationSnapshot:
		return Snapshot, nil
	}
	return ReadCommitted, fmt.Errorf("unknown isolation level %q", s)
}
