package network

import "fmt"

// EdgeLabel is the ordered endpoint pair identifying an edge. Either side is
// nil until the edge has been attached there.
type EdgeLabel struct {
	Input  *Node
	Output *Node
}

func (l EdgeLabel) String() string {
	return fmt.Sprintf("(%v, %v)", l.Input, l.Output)
}

// Edge joins an input node to an output node and carries the flow payload.
// The payload answers to two names, flow and values; they are one attribute.
type Edge struct {
	Entity
	input  *Node
	output *Node
	values interface{}
}

// EdgeParams configure NewEdge. Flow and Values name the same payload;
// supplying both is a conflict even when they are equal.
type EdgeParams struct {
	Input            *Node
	Output           *Node
	Flow             interface{}
	Values           interface{}
	CustomProperties map[string]interface{}
}

// NewEdge builds an edge and, once both endpoints are known, registers it in
// the adjacency of its input node.
func NewEdge(p EdgeParams) (*Edge, error) {
	if p.Flow != nil && p.Values != nil {
		return nil, &ConflictingArgumentsError{"flow", "values"}
	}
	ent, err := newEntity(nil, p.CustomProperties)
	if err != nil {
		return nil, err
	}
	values := p.Values
	if values == nil {
		values = p.Flow
	}
	e := &Edge{Entity: ent, values: values}
	if p.Input != nil {
		e.SetInput(p.Input)
	}
	if p.Output != nil {
		e.SetOutput(p.Output)
	}
	return e, nil
}

// EdgeFromObject normalizes an arbitrary value into an edge. Edges pass
// through untouched, EdgeParams and string-keyed maps construct a new edge,
// nil yields an empty edge, and anything else becomes the payload of a fresh
// edge.
func EdgeFromObject(o interface{}) (*Edge, error) {
	switch v := o.(type) {
	case *Edge:
		return v, nil
	case EdgeParams:
		return NewEdge(v)
	case map[string]interface{}:
		return edgeFromMap(v)
	case nil:
		return NewEdge(EdgeParams{})
	default:
		return NewEdge(EdgeParams{Values: o})
	}
}

func edgeFromMap(m map[string]interface{}) (*Edge, error) {
	var p EdgeParams
	for k, v := range m {
		switch k {
		case "input":
			n, ok := v.(*Node)
			if !ok {
				return nil, &TypeMismatchError{"input", "edge", "*Node", v}
			}
			p.Input = n
		case "output":
			n, ok := v.(*Node)
			if !ok {
				return nil, &TypeMismatchError{"output", "edge", "*Node", v}
			}
			p.Output = n
		case "flow":
			p.Flow = v
		case "values":
			p.Values = v
		case "custom_properties":
			cp, ok := v.(map[string]interface{})
			if !ok {
				return nil, &TypeMismatchError{"custom_properties", "edge", "map[string]interface{}", v}
			}
			p.CustomProperties = cp
		default:
			return nil, fmt.Errorf("unknown edge argument %q", k)
		}
	}
	return NewEdge(p)
}

// Label returns the current endpoint pair.
func (e *Edge) Label() EdgeLabel {
	return EdgeLabel{e.input, e.output}
}

func (e *Edge) String() string {
	return e.Label().String()
}

// Input returns the edge's source node.
func (e *Edge) Input() *Node {
	return e.input
}

// Output returns the edge's target node.
func (e *Edge) Output() *Node {
	return e.output
}

// Values returns the payload attached to the edge.
func (e *Edge) Values() interface{} {
	return e.values
}

// Flow is the payload's other name.
func (e *Edge) Flow() interface{} {
	return e.values
}

// SetValues replaces the payload.
func (e *Edge) SetValues(v interface{}) {
	e.values = v
}

// SetInput assigns the edge's source. When an endpoint transitions from
// unset to set and the opposite endpoint is already known, the edge
// registers itself in the adjacency exactly once; reassigning an endpoint
// that was already set never re-registers.
func (e *Edge) SetInput(n *Node) {
	old := e.input
	e.input = n
	if old == nil && n != nil && e.output != nil {
		register(n, e.output, e)
	}
}

// SetOutput assigns the edge's target, registering under the same rules as
// SetInput.
func (e *Edge) SetOutput(n *Node) {
	old := e.output
	e.output = n
	if old == nil && n != nil && e.input != nil {
		register(e.input, n, e)
	}
}
