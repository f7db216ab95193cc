package network

import (
	"testing"

	"gotest.tools/v3/assert"
)

func newNode(p Params) *Node {
	n, err := New(p)
	if err != nil {
		panic(err)
	}
	return n
}

func TestEdgeFlowValuesAlias(t *testing.T) {
	e1, err := NewEdge(EdgeParams{Flow: 7.5})
	assert.NilError(t, err)
	assert.Equal(t, e1.Values(), 7.5)
	assert.Equal(t, e1.Flow(), 7.5)

	e2, err := NewEdge(EdgeParams{Values: 7.5})
	assert.NilError(t, err)
	assert.Equal(t, e2.Flow(), 7.5)

	// equal payloads are still a conflict
	_, err = NewEdge(EdgeParams{Flow: 7.5, Values: 7.5})
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestEdgeFromObjectPassthrough(t *testing.T) {
	e, err := NewEdge(EdgeParams{})
	assert.NilError(t, err)

	got, err := EdgeFromObject(e)
	assert.NilError(t, err)
	assert.Assert(t, got == e)
}

func TestEdgeFromObjectPayload(t *testing.T) {
	got, err := EdgeFromObject(42)
	assert.NilError(t, err)
	assert.Equal(t, got.Values(), 42)

	empty, err := EdgeFromObject(nil)
	assert.NilError(t, err)
	assert.Assert(t, empty.Values() == nil)
	assert.Assert(t, empty.Input() == nil)
}

func TestEdgeFromObjectMap(t *testing.T) {
	a := newNode(Params{Label: "A"})
	b := newNode(Params{Label: "B"})

	e, err := EdgeFromObject(map[string]interface{}{
		"input":  a,
		"output": b,
		"flow":   1.0,
	})
	assert.NilError(t, err)
	assert.Assert(t, e.Input() == a)
	assert.Assert(t, e.Output() == b)
	assert.Equal(t, e.Values(), 1.0)

	_, err = EdgeFromObject(map[string]interface{}{"flow": 1.0, "values": 2.0})
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = EdgeFromObject(map[string]interface{}{"nominal_value": 1.0})
	assert.ErrorContains(t, err, "unknown edge argument")

	_, err = EdgeFromObject(map[string]interface{}{"input": "not a node"})
	assert.ErrorContains(t, err, "input of edge")
}

func TestEdgeConstructionRegisters(t *testing.T) {
	a := newNode(Params{Label: "A"})
	b := newNode(Params{Label: "B"})

	e, err := NewEdge(EdgeParams{Input: a, Output: b, Flow: 3.0})
	assert.NilError(t, err)

	got, ok := a.Outputs().Get(b)
	assert.Assert(t, ok)
	assert.Assert(t, got == e)
	assert.Equal(t, b.Inputs().Len(), 1)
}

func TestEdgeRegistersOnce(t *testing.T) {
	a := newNode(Params{Label: "A"})
	b := newNode(Params{Label: "B"})
	c := newNode(Params{Label: "C"})

	e, err := NewEdge(EdgeParams{})
	assert.NilError(t, err)

	e.SetInput(a)
	assert.Equal(t, a.Outputs().Len(), 0)

	e.SetOutput(b)
	got, ok := a.Outputs().Get(b)
	assert.Assert(t, ok)
	assert.Assert(t, got == e)

	// reassigning a set endpoint moves the label, not the adjacency
	e.SetInput(c)
	assert.Equal(t, c.Outputs().Len(), 0)
	_, ok = a.Outputs().Get(b)
	assert.Assert(t, ok)
	assert.Assert(t, e.Label() == EdgeLabel{Input: c, Output: b})
}

func TestEdgeLabel(t *testing.T) {
	a := newNode(Params{Label: "A"})
	b := newNode(Params{Label: "B"})

	e, err := NewEdge(EdgeParams{Input: a, Output: b})
	assert.NilError(t, err)
	assert.Equal(t, e.String(), "(A, B)")

	bare, err := NewEdge(EdgeParams{})
	assert.NilError(t, err)
	assert.Assert(t, bare.Label().Input == nil)
	assert.Assert(t, bare.Label().Output == nil)
}

func TestEdgeSetValues(t *testing.T) {
	e, err := NewEdge(EdgeParams{Flow: 1.0})
	assert.NilError(t, err)

	e.SetValues(2.0)
	assert.Equal(t, e.Values(), 2.0)
	assert.Equal(t, e.Flow(), 2.0)
}

func TestEdgeCustomProperties(t *testing.T) {
	e, err := NewEdge(EdgeParams{CustomProperties: map[string]interface{}{"tag": "hv"}})
	assert.NilError(t, err)
	assert.Equal(t, e.CustomProperties()["tag"], "hv")
}
