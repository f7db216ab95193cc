package network

import (
	"fmt"
	"strings"
)

// Kind tags a node with its role in the energy system. Kinds carry no
// behavior; they exist so grouping rules, exports and dispatchers can tell
// roles apart without subtyping.
type Kind string

const (
	KindNode        Kind = "node"
	KindBus         Kind = "bus"
	KindComponent   Kind = "component"
	KindSink        Kind = "sink"
	KindSource      Kind = "source"
	KindTransformer Kind = "transformer"
)

// IsComponent reports whether the kind belongs to the component family.
func (k Kind) IsComponent() bool {
	switch k {
	case KindComponent, KindSink, KindSource, KindTransformer:
		return true
	}
	return false
}

func (k Kind) title() string {
	if k == "" {
		k = KindNode
	}
	return strings.Title(string(k))
}

// Node is a vertex of the energy system graph. The outputs map is the
// authoritative adjacency store; the input side is a projection over the
// upstream nodes' outputs, backed only by a private membership set.
type Node struct {
	Entity
	kind    Kind
	outputs map[*Node]*Edge
	inEdges map[*Node]struct{}
}

// Params configure New. Inputs and Outputs accept nil, []*Node for
// payload-less connections, or map[*Node]interface{} with payloads
// normalized through EdgeFromObject.
type Params struct {
	Label            interface{}
	Kind             Kind
	Inputs           interface{}
	Outputs          interface{}
	CustomProperties map[string]interface{}
}

// New builds a node and wires the requested connections. A nil label is
// replaced by a generated one embedding the node's own id, so unlabeled
// nodes never collide.
func New(p Params) (*Node, error) {
	ent, err := newEntity(p.Label, p.CustomProperties)
	if err != nil {
		return nil, err
	}
	kind := p.Kind
	if kind == "" {
		kind = KindNode
	}
	n := &Node{
		Entity:  ent,
		kind:    kind,
		outputs: make(map[*Node]*Edge),
		inEdges: make(map[*Node]struct{}),
	}
	if n.label == nil {
		n.label = fmt.Sprintf("<%s #%s>", kind.title(), n.pid)
	}
	if err := n.connect("input", p.Inputs); err != nil {
		return nil, err
	}
	if err := n.connect("output", p.Outputs); err != nil {
		return nil, err
	}
	return n, nil
}

// NewBus builds a bus node.
func NewBus(p Params) (*Node, error) {
	p.Kind = KindBus
	return New(p)
}

// NewComponent builds a component node.
func NewComponent(p Params) (*Node, error) {
	p.Kind = KindComponent
	return New(p)
}

// NewSink builds a sink component.
func NewSink(p Params) (*Node, error) {
	p.Kind = KindSink
	return New(p)
}

// NewSource builds a source component.
func NewSource(p Params) (*Node, error) {
	p.Kind = KindSource
	return New(p)
}

// NewTransformer builds a transformer component.
func NewTransformer(p Params) (*Node, error) {
	p.Kind = KindTransformer
	return New(p)
}

func (n *Node) connect(side string, neighbors interface{}) error {
	switch v := neighbors.(type) {
	case nil:
		return nil
	case []*Node:
		for _, nb := range v {
			if err := n.attach(side, nb, nil); err != nil {
				return err
			}
		}
	case map[*Node]interface{}:
		for nb, payload := range v {
			if err := n.attach(side, nb, payload); err != nil {
				return err
			}
		}
	default:
		return &TypeMismatchError{side + "s", n.String(), "[]*Node or map[*Node]interface{}", neighbors}
	}
	return nil
}

func (n *Node) attach(side string, neighbor *Node, payload interface{}) error {
	if neighbor == nil {
		return &TypeMismatchError{side, n.String(), "*Node", neighbor}
	}
	e, err := EdgeFromObject(payload)
	if err != nil {
		return err
	}
	if side == "input" {
		e.SetInput(neighbor)
		e.SetOutput(n)
	} else {
		e.SetInput(n)
		e.SetOutput(neighbor)
	}
	return nil
}

// Kind returns the node's role tag.
func (n *Node) Kind() Kind {
	return n.kind
}

// Less orders nodes by their string form.
func (n *Node) Less(other *Node) bool {
	return n.String() < other.String()
}

// Outputs returns the live view over the node's outgoing edges.
func (n *Node) Outputs() Outputs {
	return Outputs{n}
}

// Inputs returns the live view over the node's incoming edges. The view owns
// no edge storage; every read and write delegates to the upstream node's
// outputs.
func (n *Node) Inputs() Inputs {
	return Inputs{n}
}

// register links source to target through e. Upstream membership is recorded
// before the mapping so the input side never observes a mapping without
// membership.
func register(source, target *Node, e *Edge) {
	target.inEdges[source] = struct{}{}
	source.outputs[target] = e
}

// Outputs is the write-through adjacency view of a source node.
type Outputs struct {
	source *Node
}

// Get returns the edge to target, if any.
func (o Outputs) Get(target *Node) (*Edge, bool) {
	e, ok := o.source.outputs[target]
	return e, ok
}

// Set normalizes v through EdgeFromObject, records the owner in target's
// upstream set and stores the mapping. Overwriting an existing target is
// allowed.
func (o Outputs) Set(target *Node, v interface{}) (*Edge, error) {
	if target == nil {
		return nil, &TypeMismatchError{"output", o.source.String(), "*Node", target}
	}
	e, err := EdgeFromObject(v)
	if err != nil {
		return nil, err
	}
	register(o.source, target, e)
	return e, nil
}

// Delete removes the owner from target's upstream set before dropping the
// mapping. Absent targets are a no-op.
func (o Outputs) Delete(target *Node) {
	if target == nil {
		return
	}
	delete(target.inEdges, o.source)
	delete(o.source.outputs, target)
}

// Len returns the number of outgoing edges.
func (o Outputs) Len() int {
	return len(o.source.outputs)
}

// Nodes returns the target nodes in map order.
func (o Outputs) Nodes() []*Node {
	nodes := make([]*Node, 0, len(o.source.outputs))
	for t := range o.source.outputs {
		nodes = append(nodes, t)
	}
	return nodes
}

// Edges returns the outgoing edges in map order.
func (o Outputs) Edges() []*Edge {
	edges := make([]*Edge, 0, len(o.source.outputs))
	for _, e := range o.source.outputs {
		edges = append(edges, e)
	}
	return edges
}

// Map returns a copy of the adjacency map.
func (o Outputs) Map() map[*Node]*Edge {
	m := make(map[*Node]*Edge, len(o.source.outputs))
	for t, e := range o.source.outputs {
		m[t] = e
	}
	return m
}

// Inputs projects the incoming side of a node.
type Inputs struct {
	target *Node
}

// Get reads the edge from source, delegating to source's outputs.
func (i Inputs) Get(source *Node) (*Edge, bool) {
	if source == nil {
		return nil, false
	}
	e, ok := source.outputs[i.target]
	return e, ok
}

// Set writes the edge from source by delegating to source's outputs.
func (i Inputs) Set(source *Node, v interface{}) (*Edge, error) {
	if source == nil {
		return nil, &TypeMismatchError{"input", i.target.String(), "*Node", source}
	}
	return source.Outputs().Set(i.target, v)
}

// Delete removes the edge from source by delegating to source's outputs.
func (i Inputs) Delete(source *Node) {
	if source == nil {
		return
	}
	source.Outputs().Delete(i.target)
}

// Len returns the number of incoming edges.
func (i Inputs) Len() int {
	return len(i.target.inEdges)
}

// Nodes returns the upstream nodes in membership order.
func (i Inputs) Nodes() []*Node {
	nodes := make([]*Node, 0, len(i.target.inEdges))
	for s := range i.target.inEdges {
		nodes = append(nodes, s)
	}
	return nodes
}

// Edges returns the incoming edges resolved through each upstream node.
func (i Inputs) Edges() []*Edge {
	edges := make([]*Edge, 0, len(i.target.inEdges))
	for s := range i.target.inEdges {
		if e, ok := s.outputs[i.target]; ok {
			edges = append(edges, e)
		}
	}
	return edges
}

// Map returns a copy of the incoming adjacency resolved through each
// upstream node.
func (i Inputs) Map() map[*Node]*Edge {
	m := make(map[*Node]*Edge, len(i.target.inEdges))
	for s := range i.target.inEdges {
		if e, ok := s.outputs[i.target]; ok {
			m[s] = e
		}
	}
	return m
}
