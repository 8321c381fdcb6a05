package graph

import (
	"fmt"
	"strings"

	"github.com/dr0pdb/icecanegraph/pkg/common"
)

type keyType byte

const (
	nodeKeyType         keyType = 'n'
	labelKeyType        keyType = 'l'
	relationshipKeyType keyType = 'r'
)

// labelSeparator ends the label inside a label index key. Labels may not contain it.
const labelSeparator byte = 0x00

// nodeKey is 'n' followed by the big endian node id, so keys sort by id.
func nodeKey(id NodeID) []byte {
	return append([]byte{byte(nodeKeyType)}, common.U64ToByte(uint64(id))...)
}

// labelKey is 'l' + label + 0x00 followed by the big endian node id.
func labelKey(label string, id NodeID) []byte {
	return append(labelPrefix(label), common.U64ToByte(uint64(id))...)
}

// labelPrefix is the common prefix of every label index entry of the label.
func labelPrefix(label string) []byte {
	k := make([]byte, 0, len(label)+2+8)
	k = append(k, byte(labelKeyType))
	k = append(k, label...)
	return append(k, labelSeparator)
}

func relationshipKey(id RelationshipID) []byte {
	return append([]byte{byte(relationshipKeyType)}, common.U64ToByte(uint64(id))...)
}

// idFromKey extracts the trailing node id of a node or label index key.
func idFromKey(key []byte) NodeID {
	return NodeID(common.ByteToU64(key[len(key)-8:]))
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("label must not be empty")
	}
	if strings.IndexByte(label, labelSeparator) >= 0 {
		return fmt.Errorf("label %q must not contain a NUL byte", label)
	}
	return nil
}
