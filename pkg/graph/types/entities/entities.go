package entities

import (
	"fmt"
	"slices"
	"strings"

	"github.com/diwise/graph-batch-writer/pkg/graph/errors"
	"github.com/diwise/graph-batch-writer/pkg/graph/types"
	"github.com/diwise/graph-batch-writer/pkg/graph/types/properties"
	"github.com/google/uuid"
)

type EntityDecoratorFunc func(e *EntityImpl)

// EntityImpl holds the attributes shared by nodes and edges. Property names
// keep the order in which they were first set.
type EntityImpl struct {
	entityID string
	label    string

	names      []string
	properties map[string]types.Property

	optionalLabels []string
	isEdge         bool

	err error
}

func (e *EntityImpl) ID() string {
	return e.entityID
}

func (e *EntityImpl) Label() string {
	return e.label
}

func (e *EntityImpl) PropertyNames() []string {
	return slices.Clone(e.names)
}

func (e *EntityImpl) Property(name string) (types.Property, bool) {
	p, ok := e.properties[name]
	return p, ok
}

func (e *EntityImpl) ForEachProperty(callback func(name string, p types.Property)) {
	for _, name := range e.names {
		callback(name, e.properties[name])
	}
}

func (e *EntityImpl) setProperty(name string, value types.Property) {
	if _, exists := e.properties[name]; !exists {
		e.names = append(e.names, name)
	}
	e.properties[name] = value
}

func (e *EntityImpl) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

type NodeImpl struct {
	EntityImpl
}

func (n *NodeImpl) OptionalLabels() []string {
	return slices.Clone(n.optionalLabels)
}

type EdgeImpl struct {
	EntityImpl

	source string
	target string
}

func (e *EdgeImpl) Source() string {
	return e.source
}

func (e *EdgeImpl) Target() string {
	return e.target
}

func newEntityImpl(id, label string, isEdge bool) EntityImpl {
	return EntityImpl{
		entityID:   id,
		label:      label,
		properties: map[string]types.Property{},
		isEdge:     isEdge,
	}
}

func NewNode(nodeID, label string, decorators ...EntityDecoratorFunc) (types.Node, error) {
	if nodeID == "" {
		return nil, errors.NewInvalidEntityError("node id must not be empty")
	}
	if label == "" {
		return nil, errors.NewInvalidEntityError(fmt.Sprintf("node %s has no label", nodeID))
	}

	n := &NodeImpl{EntityImpl: newEntityImpl(nodeID, label, false)}

	for _, decorator := range decorators {
		decorator(&n.EntityImpl)
	}

	if n.err != nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, n.err)
	}

	return n, nil
}

// NewEdge creates an edge between two node ids. Unless an id is supplied with
// the EdgeID decorator, a deterministic id is derived from the label, the
// endpoints and the properties.
func NewEdge(source, target, label string, decorators ...EntityDecoratorFunc) (types.Edge, error) {
	if source == "" || target == "" {
		return nil, errors.NewInvalidEntityError(fmt.Sprintf("edge %s must have both a source and a target", label))
	}
	if label == "" {
		return nil, errors.NewInvalidEntityError(fmt.Sprintf("edge %s -> %s has no label", source, target))
	}

	e := &EdgeImpl{
		EntityImpl: newEntityImpl("", label, true),
		source:     source,
		target:     target,
	}

	for _, decorator := range decorators {
		decorator(&e.EntityImpl)
	}

	if e.err != nil {
		return nil, fmt.Errorf("edge %s -> %s: %w", source, target, e.err)
	}

	if e.entityID == "" {
		e.entityID = deriveEdgeID(e)
	}

	return e, nil
}

var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/diwise/graph-batch-writer/edges"))

func deriveEdgeID(e *EdgeImpl) string {
	var sb strings.Builder
	sb.WriteString(e.label)
	sb.WriteByte(0x1f)
	sb.WriteString(e.source)
	sb.WriteByte(0x1f)
	sb.WriteString(e.target)

	e.ForEachProperty(func(name string, p types.Property) {
		fmt.Fprintf(&sb, "\x1f%s=%d:%s", name, p.Kind(), p.Canonical())
	})

	return uuid.NewSHA1(edgeNamespace, []byte(sb.String())).String()
}

// P sets a property from a loosely typed value that is validated by properties.New
func P(name string, value any) EntityDecoratorFunc {
	return func(e *EntityImpl) {
		if name == "" {
			e.fail(errors.NewInvalidEntityError("property names must not be empty"))
			return
		}

		p, err := properties.New(value)
		if err != nil {
			e.fail(fmt.Errorf("property %s: %w", name, err))
			return
		}

		e.setProperty(name, p)
	}
}

func OptionalLabels(labels ...string) EntityDecoratorFunc {
	return func(e *EntityImpl) {
		if e.isEdge {
			e.fail(errors.NewInvalidEntityError("optional labels are only supported on nodes"))
			return
		}
		e.optionalLabels = append(e.optionalLabels, labels...)
	}
}

func EdgeID(edgeID string) EntityDecoratorFunc {
	return func(e *EntityImpl) {
		if !e.isEdge {
			e.fail(errors.NewInvalidEntityError("edge ids can not be set on nodes"))
			return
		}
		e.entityID = edgeID
	}
}
