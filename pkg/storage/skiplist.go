package storage

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// maxSkipListLevel is the hard upper bound of the skip list height.
	maxSkipListLevel int32 = 18

	defaultProbability float64 = 0.5
)

// skipList is the probabilistic data structure used in memtable.
// It supports byte key and values along with custom comparators.
//
// It can be accessed concurrently.
type skipList struct {
	mutex       sync.RWMutex
	head        *skipListNode
	maxLevel    int32
	comparator  Comparator
	probability float64
	rnd         *rand.Rand
	length      int
}

// set inserts a value in the list associated with the specified key.
//
// Overwrites the data if the key already exists.
// returns a pointer to the inserted/modified skip list node.
func (s *skipList) set(key, value []byte) *skipListNode {
	log.WithFields(log.Fields{
		"key": string(key),
	}).Debug("storage::skiplist::set; started")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	prevs := s.getPreviousNodesForAllLevels(key)

	if element := prevs[0].next[0]; element != nil && s.comparator.Compare(element.getKey(), key) == 0 {
		log.WithFields(log.Fields{
			"key": string(key),
		}).Debug("storage::skiplist::set; found an existing key. overriding the existing value.")

		element.value = value
		return element
	}

	element := &skipListNode{
		key:   key,
		value: value,
		next:  make([]*skipListNode, s.randomLevel()),
	}

	for i := range element.next {
		element.next[i] = prevs[i].next[i]
		prevs[i].next[i] = element
	}
	s.length++

	return element
}

// len returns the number of nodes in the skip list.
func (s *skipList) len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.length
}

// getPreviousNodesForAllLevels returns the previous nodes at each level for passed in key.
// requires the write lock to be held.
func (s *skipList) getPreviousNodesForAllLevels(key []byte) []*skipListNode {
	prevs := make([]*skipListNode, s.maxLevel)
	var next *skipListNode
	prev := s.head

	for i := s.maxLevel - 1; i >= 0; i-- {
		next = prev.next[i]

		// while the user key is bigger than next.Key()
		for next != nil && s.comparator.Compare(key, next.getKey()) == 1 {
			prev = next
			next = next.next[i]
		}

		prevs[i] = prev
	}

	return prevs
}

// randomLevel requires the write lock to be held since rand.Rand isn't thread safe.
func (s *skipList) randomLevel() int32 {
	var level int32 = 1

	for level < s.maxLevel && s.rnd.Float64() > s.probability {
		level++
	}

	return level
}

// getEqualOrGreater returns the skiplist node with key >= the passed key.
// nil key denotes -inf i.e. the smallest.
// obtains a read lock on the skip list internally.
// return nil if no such node exists.
func (s *skipList) getEqualOrGreater(key []byte) *skipListNode {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if key == nil {
		return s.head.next[0]
	}

	var next *skipListNode
	prev := s.head

	for i := s.maxLevel - 1; i >= 0; i-- {
		next = prev.next[i]

		// while the user key is bigger than next.Key()
		for next != nil && s.comparator.Compare(key, next.getKey()) == 1 {
			prev = next
			next = next.next[i]
		}
	}

	return next
}

// successor returns the node after n at the bottom level.
// obtains a read lock on the skip list internally.
func (s *skipList) successor(n *skipListNode) *skipListNode {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return n.next[0]
}

// newSkipListIterator returns a new skip list iterator on the skip list.
func (s *skipList) newSkipListIterator() *skipListIterator {
	return &skipListIterator{
		skipList: s,
		node:     nil,
	}
}

type skipListNode struct {
	key   []byte
	value []byte
	next  []*skipListNode
}

func (sn *skipListNode) getKey() []byte {
	return sn.key
}

func (sn *skipListNode) getValue() []byte {
	return sn.value
}

// skipListIterator is the iterator over the key-value pairs of the skip list.
// It relies on the internal synchronization of the skiplist.
// Multiple goroutines can access different iterators
// but two goroutines accessing the same iterator requires external synchronization.
type skipListIterator struct {
	skipList *skipList
	node     *skipListNode
}

var _ Iterator = (*skipListIterator)(nil)

// Checks if the current position of the iterator is valid.
func (sli *skipListIterator) Valid() bool {
	return sli.node != nil
}

// Move to the first entry of the skiplist.
// Call Valid() to ensure that the iterator is valid after the seek.
func (sli *skipListIterator) SeekToFirst() {
	sli.node = sli.skipList.getEqualOrGreater(nil)
}

// Seek the iterator to the first element whose key is >= target
// Call Valid() to ensure that the iterator is valid after the seek.
func (sli *skipListIterator) Seek(target []byte) {
	sli.node = sli.skipList.getEqualOrGreater(target)
}

// Moves to the next key-value pair in the skiplist.
// Call valid() to ensure that the iterator is valid.
// REQUIRES: Current position of iterator is valid. Panic otherwise.
func (sli *skipListIterator) Next() {
	if !sli.Valid() {
		panic("Next on an invalid iterator position in skiplist.")
	}
	sli.node = sli.skipList.successor(sli.node)
}

// Get the key of the current iterator position.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (sli *skipListIterator) Key() []byte {
	if !sli.Valid() {
		panic("Key on an invalid iterator position in skiplist.")
	}
	return sli.node.getKey()
}

// Get the value of the current iterator position.
// REQUIRES: Current position of iterator is valid. Panics otherwise.
func (sli *skipListIterator) Value() []byte {
	if !sli.Valid() {
		panic("Value on an invalid iterator position in skiplist.")
	}
	return sli.node.getValue()
}

// newSkipList creates a new skipList
//
// Passing 0 for maxLevel leads to a default max level.
func newSkipList(maxLevel int32, comparator Comparator) *skipList {
	if maxLevel == 0 {
		maxLevel = defaultSkipListHeight
	}

	if maxLevel < 1 || maxLevel > maxSkipListLevel {
		panic("maxLevel for the SkipList must be a positive integer <= 18")
	}

	return &skipList{
		head:        &skipListNode{next: make([]*skipListNode, maxLevel)},
		maxLevel:    maxLevel,
		comparator:  comparator,
		probability: defaultProbability,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}
