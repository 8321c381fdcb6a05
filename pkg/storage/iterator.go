package storage

// Iterator interface
type Iterator interface {
	// Checks if the current position of the iterator is valid.
	Valid() bool

	// Move to the first entry of the source.
	// Call Valid() to ensure that the iterator is valid after the seek.
	SeekToFirst()

	// Seek the iterator to the first element whose key is >= target
	// Call Valid() to ensure that the iterator is valid after the seek.
	Seek(target []byte)

	// Moves to the next key-value pair in the source.
	// Call valid() to ensure that the iterator is valid.
	// REQUIRES: Current position of iterator is valid. Panic otherwise.
	Next()

	// Get the key of the current iterator position.
	// REQUIRES: Current position of iterator is valid. Panics otherwise.
	Key() []byte

	// Get the value of the current iterator position.
	// REQUIRES: Current position of iterator is valid. Panics otherwise.
	Value() []byte
}

// KeyValueIterator is a wrapper over the skipListIterator.
// It yields user keys in order, each with the newest value visible at its sequence number.
type KeyValueIterator struct {
	itr               *skipListIterator
	seq               uint64
	userKeyComparator Comparator
}

var _ Iterator = (*KeyValueIterator)(nil)

// Valid checks if the current position of the iterator is valid.
func (si *KeyValueIterator) Valid() bool {
	return si.itr.Valid()
}

// SeekToFirst moves to the first entry of the source.
// Call Valid() to ensure that the iterator is valid after the seek.
func (si *KeyValueIterator) SeekToFirst() {
	si.itr.SeekToFirst()
	si.skipInvisible(nil)
}

// Seek the iterator to the first user key >= target
// Call Valid() to ensure that the iterator is valid after the seek.
func (si *KeyValueIterator) Seek(target []byte) {
	si.itr.Seek(newInternalKey(target, si.seq))
	si.skipInvisible(nil)
}

// Next moves to the next user key in the source.
// Call valid() to ensure that the iterator is valid.
// REQUIRES: Current position of iterator is valid. Panic otherwise.
func (si *KeyValueIterator) Next() {
	current := si.Key()
	si.itr.Next()
	si.skipInvisible(current)
}

// Key returns the user key of the current iterator position.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (si *KeyValueIterator) Key() []byte {
	// extract the user key out of the internal key
	ikey := internalKey(si.itr.Key())
	return ikey.userKey()
}

// Value gets the value of the current iterator position.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (si *KeyValueIterator) Value() []byte {
	return si.itr.Value()
}

// SequenceNumber returns the sequence number of the write batch that wrote the current version.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (si *KeyValueIterator) SequenceNumber() uint64 {
	return internalKey(si.itr.Key()).sequenceNumber()
}

// skipInvisible advances past versions newer than the iterator's sequence number
// and past older versions of the user key skip.
func (si *KeyValueIterator) skipInvisible(skip []byte) {
	for si.itr.Valid() {
		ikey := internalKey(si.itr.Key())
		if skip != nil && si.userKeyComparator.Compare(ikey.userKey(), skip) == 0 {
			si.itr.Next()
			continue
		}
		if ikey.sequenceNumber() > si.seq {
			si.itr.Next()
			continue
		}
		return
	}
}
