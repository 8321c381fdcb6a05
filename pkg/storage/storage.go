package storage

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Storage is the in-memory multi version key-value store.
//
// Every write batch applied to it is assigned the next sequence number and all of its
// records become visible at once when the sequence number is published.
// Writes are serialized; reads never wait for the memtable insertions of a batch in progress.
type Storage struct {
	options *Options

	// mu guards seqNum and closed. Write holds it exclusively for the whole batch.
	mu     sync.RWMutex
	seqNum uint64
	closed bool

	memtable *memtable
}

// Get returns the value associated with the given key.
// returns NotFoundError if the key has no version visible to the read.
func (s *Storage) Get(key []byte, opts *ReadOptions) ([]byte, error) {
	seq, err := s.readSeqNumber(opts)
	if err != nil {
		return nil, err
	}

	value, _, err := s.memtable.get(newInternalKey(key, seq))
	return value, err
}

// LatestVersion returns the sequence number of the newest committed version of the key.
// returns NotFoundError if the key was never written.
func (s *Storage) LatestVersion(key []byte) (uint64, error) {
	_, seq, err := s.memtable.get(newInternalKey(key, maxSequenceNumber))
	return seq, err
}

// Write applies the write batch atomically and returns the sequence number assigned to it.
func (s *Storage) Write(wb *WriteBatch) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("storage is closed")
	}
	if wb.Count() == 0 {
		return s.seqNum, nil
	}

	seq := s.seqNum + 1
	wb.setSeqNum(seq)

	log.WithFields(log.Fields{"seq": seq, "count": wb.getCount()}).Debug("storage::storage::Write; applying batch")

	itr := wb.getIterator()
	for {
		ukey, value, ok := itr.next()
		if !ok {
			break
		}

		// the batch owns its buffer; copy so the memtable never aliases it.
		k := append([]byte(nil), ukey...)
		v := append([]byte(nil), value...)
		s.memtable.set(newInternalKey(k, seq), v)
	}

	// publish the batch. records with seq > seqNum were invisible until now.
	s.seqNum = wb.getSeqNum()
	return s.seqNum, nil
}

// GetSnapshot returns a snapshot of the latest committed state.
func (s *Storage) GetSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{SeqNum: s.seqNum}
}

// LatestSeqNumber returns the sequence number of the last applied write batch.
func (s *Storage) LatestSeqNumber() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seqNum
}

// NewIterator returns an iterator over the user keys visible to the read.
// The iterator starts unpositioned; call Seek or SeekToFirst.
func (s *Storage) NewIterator(opts *ReadOptions) (*KeyValueIterator, error) {
	seq, err := s.readSeqNumber(opts)
	if err != nil {
		return nil, err
	}
	return s.memtable.newIterator(seq), nil
}

// Close closes the storage. Subsequent writes fail.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("storage is already closed")
	}
	s.closed = true
	log.Info("storage::storage::Close; closed")
	return nil
}

func (s *Storage) readSeqNumber(opts *ReadOptions) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("storage is closed")
	}
	if opts != nil && opts.Snapshot != nil {
		return opts.Snapshot.SeqNum, nil
	}
	return s.seqNum, nil
}

// NewStorage creates a new in-memory storage according to the given options.
// nil options use the defaults.
func NewStorage(options *Options) (*Storage, error) {
	if options == nil {
		options = &Options{}
	}
	if options.UserKeyComparator == nil {
		options.UserKeyComparator = DefaultComparator
	}
	if options.SkipListHeight == 0 {
		options.SkipListHeight = defaultSkipListHeight
	}
	if options.SkipListHeight < 1 || options.SkipListHeight > maxSkipListLevel {
		return nil, fmt.Errorf("invalid skiplist height %d", options.SkipListHeight)
	}

	internalKeyComparator := newInternalKeyComparator(options.UserKeyComparator)
	skipList := newSkipList(options.SkipListHeight, internalKeyComparator)

	log.WithFields(log.Fields{"comparator": options.UserKeyComparator.Name()}).Info("storage::storage::NewStorage; created")

	return &Storage{
		options:  options,
		memtable: newMemtable(skipList, options.UserKeyComparator),
	}, nil
}
