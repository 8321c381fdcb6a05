package graph

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/dr0pdb/icecanegraph/internal/common"
	"github.com/vmihailenco/msgpack/v5"
)

// NodeID identifies a node. It is assigned once at creation and never reused.
type NodeID uint64

// RelationshipID identifies a relationship.
type RelationshipID uint64

// Node is a labeled, property-bearing vertex.
type Node struct {
	ID         NodeID                 `msgpack:"id"`
	Labels     []string               `msgpack:"labels"`
	Properties map[string]interface{} `msgpack:"props"`
}

// HasLabel returns true if the node carries the label.
func (n *Node) HasLabel(label string) bool {
	i := sort.SearchStrings(n.Labels, label)
	return i < len(n.Labels) && n.Labels[i] == label
}

// Property returns the value of the property and whether it exists.
func (n *Node) Property(key string) (interface{}, bool) {
	v, ok := n.Properties[key]
	return v, ok
}

// Relationship is a typed, directed edge between two nodes.
type Relationship struct {
	ID         RelationshipID         `msgpack:"id"`
	Type       string                 `msgpack:"type"`
	Start      NodeID                 `msgpack:"start"`
	End        NodeID                 `msgpack:"end"`
	Properties map[string]interface{} `msgpack:"props"`
}

// normalizeLabels returns the labels sorted and deduplicated.
func normalizeLabels(labels []string) ([]string, error) {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if err := validateLabel(l); err != nil {
			return nil, err
		}
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out, nil
}

// normalizeProperties copies props converting every value to one of
// string, bool, int64 or float64.
// returns InvalidPropertyError for any other kind of value.
func normalizeProperties(props map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		if k == "" {
			return nil, common.NewInvalidPropertyError("property key must not be empty")
		}
		nv, err := normalizeValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(key string, v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			break
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			break
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	}
	return nil, common.NewInvalidPropertyError(fmt.Sprintf("property %q has unsupported value %v of type %T", key, v, v))
}

// encode serializes a record deterministically: map keys are sorted.
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode deserializes a record written by encode and restores the normalized property kinds.
func decode(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

func encodeNode(n *Node) ([]byte, error) {
	return encode(n)
}

func decodeNode(data []byte) (*Node, error) {
	n := &Node{}
	if err := decode(data, n); err != nil {
		return nil, err
	}
	props, err := normalizeProperties(n.Properties)
	if err != nil {
		return nil, err
	}
	n.Properties = props
	return n, nil
}

func encodeRelationship(r *Relationship) ([]byte, error) {
	return encode(r)
}

func decodeRelationship(data []byte) (*Relationship, error) {
	r := &Relationship{}
	if err := decode(data, r); err != nil {
		return nil, err
	}
	props, err := normalizeProperties(r.Properties)
	if err != nil {
		return nil, err
	}
	r.Properties = props
	return r, nil
}
