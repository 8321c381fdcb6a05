package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testKeys   = [][]byte{[]byte("Key1"), []byte("Key2"), []byte("Key3"), []byte("Key4"), []byte("Key5")}
	testValues = [][]byte{[]byte("Value 1"), []byte("Value 2"), []byte("Value 3"), []byte("Value 4"), []byte("Value 5")}
)

// TestSkipListBasic tests set and ordered iteration on the skip list
func TestSkipListBasic(t *testing.T) {
	skipList := newSkipList(10, DefaultComparator)

	// insert in reverse order, iteration must still be sorted.
	for i := len(testKeys) - 1; i >= 0; i-- {
		skipList.set(testKeys[i], testValues[i])
	}
	assert.Equal(t, len(testKeys), skipList.len())

	itr := skipList.newSkipListIterator()
	itr.SeekToFirst()
	for i := range testKeys {
		assert.True(t, itr.Valid(), fmt.Sprintf("iterator ended early at idx %d", i))
		assert.Equal(t, testKeys[i], itr.Key())
		assert.Equal(t, testValues[i], itr.Value())
		itr.Next()
	}
	assert.False(t, itr.Valid())

	// overwrite keeps the length.
	skipList.set(testKeys[1], testValues[0])
	assert.Equal(t, len(testKeys), skipList.len())

	itr.Seek(testKeys[1])
	assert.True(t, itr.Valid())
	assert.Equal(t, testValues[0], itr.Value(), "Value for Key2 should be overwritten.")
}

func TestSkipListSeekPastEnd(t *testing.T) {
	skipList := newSkipList(4, DefaultComparator)
	skipList.set(testKeys[0], testValues[0])

	itr := skipList.newSkipListIterator()
	itr.Seek([]byte("Key9"))
	assert.False(t, itr.Valid())
	assert.Panics(t, func() { itr.Next() })
}

// TestSkipListConcurrency tests the concurrency operations on the skip list
func TestSkipListConcurrency(t *testing.T) {
	skipList := newSkipList(10, DefaultComparator)
	l := 1000

	wg := &sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < l; i++ {
			k := []byte(fmt.Sprintf("a%05d", i))
			skipList.set(k, k)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < l; i++ {
			k := []byte(fmt.Sprintf("b%05d", i))
			skipList.set(k, k)
		}
	}()

	wg.Wait()
	assert.Equal(t, 2*l, skipList.len())

	for i := 0; i < l; i++ {
		k1 := []byte(fmt.Sprintf("a%05d", i))
		k2 := []byte(fmt.Sprintf("b%05d", i))
		node1 := skipList.getEqualOrGreater(k1)
		node2 := skipList.getEqualOrGreater(k2)
		assert.NotNil(t, node1)
		assert.NotNil(t, node2)
		assert.Equal(t, k1, node1.getValue(), "Value mismatch in concurrency testing.")
		assert.Equal(t, k2, node2.getValue(), "Value mismatch in concurrency testing.")
	}
}

func TestNewSkipListRejectsBadHeight(t *testing.T) {
	assert.Panics(t, func() { newSkipList(19, DefaultComparator) })
	assert.NotPanics(t, func() { newSkipList(0, DefaultComparator) })
}
