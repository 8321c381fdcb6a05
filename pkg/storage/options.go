package storage

const (
	defaultSkipListHeight int32 = 12
)

// Options defines all of the configuration options available with the storage layer.
type Options struct {
	// SkipListHeight is the max level of the memtable skiplist.
	// set to zero for defaultSkipListHeight.
	SkipListHeight int32

	// UserKeyComparator orders user keys.
	// set to nil for DefaultComparator.
	UserKeyComparator Comparator
}

// ReadOptions controls a single read or scan.
type ReadOptions struct {
	// Snapshot pins the read to a sequence number.
	// nil reads the latest committed state.
	Snapshot *Snapshot
}
