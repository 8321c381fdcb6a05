package mapper

import (
	"github.com/dr0pdb/icecanegraph/pkg/graph"
)

// Entity is a plain record that knows how to map itself onto a node.
// Implementations must be pointer types so that entities can be told apart by identity.
type Entity interface {
	// Labels returns the labels of the node.
	Labels() []string

	// Properties returns the scalar properties of the node.
	Properties() map[string]interface{}

	// Relations returns the outgoing relations to other entities.
	Relations() []Relation

	// ID returns the id of the node once the entity is saved.
	ID() (graph.NodeID, bool)

	// SetID is called with the id of the node created for the entity.
	SetID(id graph.NodeID)
}

// Relation is an outgoing relationship of an entity.
type Relation struct {
	Type   string
	Target Entity
}

// SampleNodeLabel is the label of SampleNode entities.
const SampleNodeLabel = "SampleNode"

// SampleNode is a property-less entity with an optional child.
type SampleNode struct {
	id    graph.NodeID
	saved bool

	Child *SampleNode
}

var _ Entity = (*SampleNode)(nil)

// Labels of a SampleNode.
func (s *SampleNode) Labels() []string {
	return []string{SampleNodeLabel}
}

// Properties of a SampleNode. It has none.
func (s *SampleNode) Properties() map[string]interface{} {
	return map[string]interface{}{}
}

// Relations of a SampleNode: its child, if set.
func (s *SampleNode) Relations() []Relation {
	if s.Child == nil {
		return nil
	}
	return []Relation{{Type: "child", Target: s.Child}}
}

// ID of the node of a saved SampleNode.
func (s *SampleNode) ID() (graph.NodeID, bool) {
	return s.id, s.saved
}

// SetID records the id of the node.
func (s *SampleNode) SetID(id graph.NodeID) {
	s.id = id
	s.saved = true
}
