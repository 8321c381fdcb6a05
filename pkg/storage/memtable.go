package storage

import (
	"fmt"

	"github.com/dr0pdb/icecanegraph/internal/common"
	log "github.com/sirupsen/logrus"
)

// memtable is the in-memory store holding every version of every key.
// It is thread safe and can be accessed concurrently.
type memtable struct {
	skiplist          *skipList
	userKeyComparator Comparator
}

// set writes the value under the given internal key.
func (m *memtable) set(ikey internalKey, value []byte) {
	m.skiplist.set(ikey, value)
}

// get returns the newest version of the user key in ikey whose sequence number is <= the one in ikey.
// returns the value along with the sequence number of the version found.
// returns NotFoundError if no such version exists.
func (m *memtable) get(ikey internalKey) ([]byte, uint64, error) {
	ukey := ikey.userKey()
	node := m.skiplist.getEqualOrGreater(ikey)
	if node != nil {
		found := internalKey(node.getKey())
		if m.userKeyComparator.Compare(found.userKey(), ukey) == 0 {
			return node.getValue(), found.sequenceNumber(), nil
		}
	}

	log.WithFields(log.Fields{"key": string(ukey)}).Debug("storage::memtable::get; key not found")
	return nil, 0, common.NewNotFoundError(fmt.Sprintf("key %v not found", ukey))
}

// newIterator returns an iterator which only exposes versions with sequence number <= seq.
func (m *memtable) newIterator(seq uint64) *KeyValueIterator {
	return &KeyValueIterator{
		itr:               m.skiplist.newSkipListIterator(),
		seq:               seq,
		userKeyComparator: m.userKeyComparator,
	}
}

// newMemtable returns a new instance of the memtable.
// the skiplist must be ordered by an internal key comparator built from userKeyComparator.
func newMemtable(skiplist *skipList, userKeyComparator Comparator) *memtable {
	return &memtable{
		skiplist:          skiplist,
		userKeyComparator: userKeyComparator,
	}
}
