package storage

import (
	"encoding/binary"
	"math"
)

const internalKeyTrailerSize = 8

// maxSequenceNumber is used for seeks that should see every committed version.
const maxSequenceNumber uint64 = math.MaxUint64

// internalKey is the key used inside the memtable.
//
// It consists of the user key along with a 8-byte big endian sequence number suffix.
// Several versions of the same user key live side by side, one per write batch that touched it.
type internalKey []byte

// newInternalKey generates an internalKey from a userKey and a sequence number.
func newInternalKey(userKey []byte, sequenceNumber uint64) internalKey {
	ik := make(internalKey, len(userKey)+internalKeyTrailerSize)
	n := copy(ik, userKey)
	binary.BigEndian.PutUint64(ik[n:], sequenceNumber)
	return ik
}

// userKey extracts the user key from the internal key and returns a new slice.
func (ik internalKey) userKey() []byte {
	uk := make([]byte, len(ik)-internalKeyTrailerSize)
	copy(uk, ik[:len(ik)-internalKeyTrailerSize])
	return uk
}

// sequenceNumber returns the sequence number of the internal key.
func (ik internalKey) sequenceNumber() uint64 {
	return binary.BigEndian.Uint64(ik[len(ik)-internalKeyTrailerSize:])
}

// internalKeyComparator is the comparator which uses a user key comparator to compare internal key.
//
// keys are first compared for their user key according to the user key comparator.
// ties are broken by comparing sequence number (decreasing) so that the newest version comes first.
type internalKeyComparator struct {
	userKeyComparator Comparator
}

func (d *internalKeyComparator) Compare(a, b []byte) int {
	ia, ib := internalKey(a), internalKey(b)
	ua := ia[:len(ia)-internalKeyTrailerSize]
	ub := ib[:len(ib)-internalKeyTrailerSize]

	if c := d.userKeyComparator.Compare(ua, ub); c != 0 {
		return c
	}

	sa, sb := ia.sequenceNumber(), ib.sequenceNumber()
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	}
	return 0
}

func (d *internalKeyComparator) Name() string {
	return "InternalKeyComparator"
}

// newInternalKeyComparator creates a new instance of an internalKeyComparator
// returns a pointer to the Comparator interface.
func newInternalKeyComparator(userKeyComparator Comparator) Comparator {
	return &internalKeyComparator{
		userKeyComparator: userKeyComparator,
	}
}
