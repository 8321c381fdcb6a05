package common

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint64BytesConversion(t *testing.T) {
	n := uint64(121)
	b := U64ToByte(n)
	assert.Equal(t, n, ByteToU64(b), fmt.Sprintf("Unexpected error in uint64-bytes comparison; expected %d actual %d", n, ByteToU64(b)))
}

func TestUint64BytesOrdering(t *testing.T) {
	small := U64ToByte(255)
	big := U64ToByte(256)
	assert.Equal(t, -1, bytes.Compare(small, big), "expected byte order to follow numeric order")
}

func TestProtectedBool(t *testing.T) {
	var b ProtectedBool
	assert.False(t, b.Get())

	assert.True(t, b.CompareAndSet(false, true), "expected first swap to succeed")
	assert.False(t, b.CompareAndSet(false, true), "expected second swap to fail")
	assert.True(t, b.Get())

	b.Set(false)
	assert.False(t, b.Get())
}
