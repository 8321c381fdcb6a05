package mvcc

import (
	"bytes"
	"sort"

	"github.com/dr0pdb/icecanegraph/pkg/storage"
)

// Iterator merges the committed keys visible to a txn with the txn's own writes.
// When both sides hold the same key, the txn's write wins.
//
// It is not safe for concurrent use.
type Iterator struct {
	base *storage.KeyValueIterator

	// own writes sorted by key.
	keys   []string
	values map[string][]byte
	pos    int

	key, value []byte
	valid      bool
}

var _ storage.Iterator = (*Iterator)(nil)

func newIterator(base *storage.KeyValueIterator, keys []string, values map[string][]byte) *Iterator {
	return &Iterator{
		base:   base,
		keys:   keys,
		values: values,
	}
}

// Valid checks if the current position of the iterator is valid.
func (it *Iterator) Valid() bool {
	return it.valid
}

// SeekToFirst moves to the smallest visible key.
func (it *Iterator) SeekToFirst() {
	it.base.SeekToFirst()
	it.pos = 0
	it.pick()
}

// Seek moves to the first visible key >= target.
func (it *Iterator) Seek(target []byte) {
	it.base.Seek(target)
	it.pos = sort.SearchStrings(it.keys, string(target))
	it.pick()
}

// Next moves to the next visible key.
// REQUIRES: Current position of iterator is valid. Panic otherwise.
func (it *Iterator) Next() {
	if !it.valid {
		panic("Next on an invalid iterator position in txn iterator.")
	}

	if it.base.Valid() && bytes.Equal(it.base.Key(), it.key) {
		it.base.Next()
	}
	if it.pos < len(it.keys) && it.keys[it.pos] == string(it.key) {
		it.pos++
	}
	it.pick()
}

// Key returns the key of the current iterator position.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (it *Iterator) Key() []byte {
	if !it.valid {
		panic("Key on an invalid iterator position in txn iterator.")
	}
	return it.key
}

// Value returns the value of the current iterator position.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (it *Iterator) Value() []byte {
	if !it.valid {
		panic("Value on an invalid iterator position in txn iterator.")
	}
	return it.value
}

// pick positions the iterator on the smaller of the two sides.
func (it *Iterator) pick() {
	baseOk := it.base.Valid()
	ownOk := it.pos < len(it.keys)

	switch {
	case !baseOk && !ownOk:
		it.valid = false
		it.key, it.value = nil, nil
	case baseOk && (!ownOk || bytes.Compare(it.base.Key(), []byte(it.keys[it.pos])) < 0):
		it.valid = true
		it.key, it.value = it.base.Key(), it.base.Value()
	default:
		k := it.keys[it.pos]
		it.valid = true
		it.key, it.value = []byte(k), it.values[k]
	}
}
