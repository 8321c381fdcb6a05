package common

import (
	"encoding/binary"
	"sync"
)

// U64ToByte encodes n as 8 big endian bytes so that byte order equals numeric order.
func U64ToByte(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// ByteToU64 decodes the first 8 bytes of b written by U64ToByte.
func ByteToU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[:8])
}

// ProtectedBool is a boolean protected by RW lock
type ProtectedBool struct {
	m     sync.RWMutex
	value bool
}

// Set sets the value (surprise surprise!)
func (b *ProtectedBool) Set(nvalue bool) {
	b.m.Lock()
	defer b.m.Unlock()
	b.value = nvalue
}

// Get gets the value
func (b *ProtectedBool) Get() bool {
	b.m.RLock()
	defer b.m.RUnlock()
	return b.value
}

// CompareAndSet sets the value to nvalue if it currently equals old.
// returns true if the swap happened.
func (b *ProtectedBool) CompareAndSet(old, nvalue bool) bool {
	b.m.Lock()
	defer b.m.Unlock()
	if b.value != old {
		return false
	}
	b.value = nvalue
	return true
}
