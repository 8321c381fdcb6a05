package mvcc

import (
	"sort"

	"github.com/dr0pdb/icecanegraph/pkg/storage"
)

// mapReadOptsToStorageReadOpts picks the committed state a read of the txn observes.
// ReadCommitted reads the latest committed state, Snapshot the state at begin.
func mapReadOptsToStorageReadOpts(isolation IsolationLevel, snap *storage.Snapshot) *storage.ReadOptions {
	if isolation == Snapshot {
		return &storage.ReadOptions{
			Snapshot: snap,
		}
	}
	return &storage.ReadOptions{}
}

// sortedWrites returns a copy of the write-set keys in byte order along with their values.
func sortedWrites(sets map[string][]byte) ([]string, map[string][]byte) {
	keys := make([]string, 0, len(sets))
	values := make(map[string][]byte, len(sets))
	for k, v := range sets {
		keys = append(keys, k)
		values[k] = v
	}
	sort.Strings(keys)
	return keys, values
}
