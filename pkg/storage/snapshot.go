package storage

// Snapshot denotes a read-only snapshot of the database.
// Reads through a snapshot only see write batches with a sequence number <= SeqNum.
type Snapshot struct {
	SeqNum uint64
}

// SeqNumber returns the seq number of the snapshot
func (s *Snapshot) SeqNumber() uint64 {
	return s.SeqNum
}
