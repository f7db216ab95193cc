package groupings

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/ohowland/esys_core/internal/pkg/network"
)

func newNode(label interface{}) *network.Node {
	n, err := network.New(network.Params{Label: label})
	if err != nil {
		panic(err)
	}
	return n
}

func assertPanics(t *testing.T, fn func(), want string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic naming %q", want)
		}
		err, ok := r.(error)
		assert.Assert(t, ok)
		assert.ErrorContains(t, err, want)
	}()
	fn()
}

func TestNewArgumentChecks(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorContains(t, err, "missing argument")

	_, err = New(Params{
		Key:         func(n *network.Node) interface{} { return n },
		ConstantKey: "key",
	})
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestUnsetBaseImplementations(t *testing.T) {
	var g Grouping
	n := newNode("dummy")

	assertPanics(t, func() { g.Key(n) }, "key")
	assertPanics(t, func() { g.Filter("dummy") }, "filter")
	assertPanics(t, func() { g.Apply(n, Groups{}) }, "key")
}

func TestDefaultValueIsTheNode(t *testing.T) {
	g, err := New(Params{ConstantKey: "k"})
	assert.NilError(t, err)

	n := newNode("N")
	assert.Assert(t, g.Value(n).(*network.Node) == n)
}

func TestScalarGroupWithFilter(t *testing.T) {
	g, err := New(Params{
		Key:    func(*network.Node) interface{} { return "The Special One" },
		Filter: func(v interface{}) bool { return strings.Contains(v.(*network.Node).String(), "special") },
	})
	assert.NilError(t, err)

	special := newNode("special")
	other := newNode("other")

	groups := Groups{}
	g.Apply(special, groups)
	g.Apply(other, groups)

	assert.Assert(t, groups["The Special One"].(*network.Node) == special)
}

func TestElementwiseFiltering(t *testing.T) {
	g, err := Entities(Params{
		ConstantKey: "group",
		Value:       func(*network.Node) interface{} { return NewSet(1, 2, 3, 4) },
		Filter:      func(v interface{}) bool { return v.(int)%2 == 0 },
	})
	assert.NilError(t, err)

	groups := Groups{}
	g.Apply(newNode("object"), groups)

	got := groups["group"].(Set)
	assert.Equal(t, got.Len(), 2)
	assert.Assert(t, got.Has(2))
	assert.Assert(t, got.Has(4))
}

func TestMappingValues(t *testing.T) {
	g, err := New(Params{
		Key: func(n *network.Node) interface{} { return len(n.String()) },
		Value: func(n *network.Node) interface{} {
			counts := make(map[interface{}]interface{})
			for _, r := range n.String() {
				c, _ := counts[string(r)].(int)
				counts[string(r)] = c + 1
			}
			return counts
		},
	})
	assert.NilError(t, err)

	groups := Groups{}
	g.Apply(newNode("foo"), groups)

	got := groups[3].(map[interface{}]interface{})
	assert.Equal(t, got["o"], 2)
	assert.Equal(t, got["f"], 1)
}

func TestMappingValuesFilteredElementwise(t *testing.T) {
	g, err := New(Params{
		ConstantKey: "m",
		Value: func(*network.Node) interface{} {
			return map[interface{}]interface{}{"a": 1, "b": 2, "c": 3}
		},
		Filter: func(v interface{}) bool { return v.(int) > 1 },
	})
	assert.NilError(t, err)

	groups := Groups{}
	g.Apply(newNode("x"), groups)

	got := groups["m"].(map[interface{}]interface{})
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got["b"], 2)
	assert.Equal(t, got["c"], 3)
}

func TestMultipleKeysFromOneFunction(t *testing.T) {
	g, err := Nodes(Params{Key: func(n *network.Node) interface{} {
		label := n.String()
		return []interface{}{label[:3], label[len(label)-1:]}
	}})
	assert.NilError(t, err)

	nodes := []*network.Node{
		newNode("Foo: 1A"),
		newNode("Bar: 2A"),
		newNode("Foo: 3B"),
		newNode("Bar: 4B"),
	}
	groups := Groups{}
	for _, n := range nodes {
		g.Apply(n, groups)
	}

	for _, key := range []string{"Foo", "Bar", "A", "B"} {
		got := groups[key].(Set)
		assert.Equal(t, got.Len(), 2)
	}
	assert.Assert(t, groups["Foo"].(Set).Has(nodes[0]))
	assert.Assert(t, groups["A"].(Set).Has(nodes[1]))
}

func TestNilKeysDropped(t *testing.T) {
	g, err := Nodes(Params{Key: func(n *network.Node) interface{} {
		if strings.Contains(n.String(), "skip") {
			return nil
		}
		return "Group"
	}})
	assert.NilError(t, err)

	in := newNode("kept")
	out := newNode("skip me")

	groups := Groups{}
	g.Apply(in, groups)
	g.Apply(out, groups)

	_, hasNil := groups[nil]
	assert.Assert(t, !hasNil)
	got := groups["Group"].(Set)
	assert.Assert(t, got.Has(in))
	assert.Assert(t, !got.Has(out))

	multi, err := Nodes(Params{Key: func(*network.Node) interface{} {
		return []interface{}{nil, "real"}
	}})
	assert.NilError(t, err)
	multi.Apply(in, groups)
	_, hasNil = groups[nil]
	assert.Assert(t, !hasNil)
	assert.Assert(t, groups["real"].(Set).Has(in))
}

func TestConstantKeyNotInvoked(t *testing.T) {
	calls := 0
	everything := func() string {
		calls++
		return "everything"
	}

	g, err := Entities(Params{ConstantKey: &everything})
	assert.NilError(t, err)

	n := newNode("A Node")
	groups := Groups{}
	g.Apply(n, groups)

	_, wrongKey := groups["everything"]
	assert.Assert(t, !wrongKey)

	got, ok := groups[&everything].(Set)
	assert.Assert(t, ok)
	assert.Assert(t, got.Has(n))
	assert.Equal(t, calls, 0)
	assert.Equal(t, everything(), "everything")
}

func TestMergeUnionsSets(t *testing.T) {
	g, err := Nodes(Params{ConstantKey: "all"})
	assert.NilError(t, err)

	n1 := newNode("N1")
	n2 := newNode("N2")

	groups := Groups{}
	g.Apply(n1, groups)
	g.Apply(n2, groups)

	got := groups["all"].(Set)
	assert.Equal(t, got.Len(), 2)
	assert.Assert(t, got.Has(n1))
	assert.Assert(t, got.Has(n2))
}

func TestMergeUpdatesMappings(t *testing.T) {
	g, err := New(Params{
		ConstantKey: "m",
		Value: func(n *network.Node) interface{} {
			return map[interface{}]interface{}{n.String(): n, "last": n}
		},
	})
	assert.NilError(t, err)

	n1 := newNode("N1")
	n2 := newNode("N2")

	groups := Groups{}
	g.Apply(n1, groups)
	g.Apply(n2, groups)

	got := groups["m"].(map[interface{}]interface{})
	assert.Assert(t, got["N1"].(*network.Node) == n1)
	assert.Assert(t, got["N2"].(*network.Node) == n2)
	assert.Assert(t, got["last"].(*network.Node) == n2)
}

func TestScalarLastWriteWins(t *testing.T) {
	g, err := New(Params{ConstantKey: "owner"})
	assert.NilError(t, err)

	n1 := newNode("N1")
	n2 := newNode("N2")

	groups := Groups{}
	g.Apply(n1, groups)
	g.Apply(n2, groups)

	assert.Assert(t, groups["owner"].(*network.Node) == n2)
}

func TestByLabel(t *testing.T) {
	g := ByLabel()

	n1 := newNode("a")
	n2 := newNode("a")

	groups := Groups{}
	g.Apply(n1, groups)
	g.Apply(n2, groups)

	assert.Assert(t, groups["a"].(*network.Node) == n2)
}

func TestFromObject(t *testing.T) {
	g, err := Nodes(Params{ConstantKey: "k"})
	assert.NilError(t, err)
	got, err := FromObject(g)
	assert.NilError(t, err)
	assert.Assert(t, got == g)

	rule, err := FromObject(func(*network.Node) interface{} { return "via func" })
	assert.NilError(t, err)
	groups := Groups{}
	rule.Apply(newNode("x"), groups)
	set, ok := groups["via func"].(Set)
	assert.Assert(t, ok)
	assert.Equal(t, set.Len(), 1)

	_, err = FromObject(42)
	assert.ErrorContains(t, err, "groupings")
}

func TestFlowsGrouping(t *testing.T) {
	key := &struct{ name string }{"flows"}
	g, err := Flows(Params{ConstantKey: key})
	assert.NilError(t, err)

	bus := newNode("A Bus")
	node, err := network.New(network.Params{
		Label:   "A Node",
		Inputs:  map[*network.Node]interface{}{bus: nil},
		Outputs: map[*network.Node]interface{}{bus: nil},
	})
	assert.NilError(t, err)

	groups := Groups{}
	g.Apply(bus, groups)
	g.Apply(node, groups)

	got := groups[key].(Set)
	assert.Equal(t, got.Len(), 2)
	in, _ := node.Inputs().Get(bus)
	out, _ := node.Outputs().Get(bus)
	assert.Assert(t, got.Has(in))
	assert.Assert(t, got.Has(out))
}

func TestFlowsWithNodesGrouping(t *testing.T) {
	g, err := FlowsWithNodes(Params{ConstantKey: "triples"})
	assert.NilError(t, err)

	bus := newNode("A Bus")
	node, err := network.New(network.Params{
		Label:   "A Node",
		Inputs:  map[*network.Node]interface{}{bus: nil},
		Outputs: map[*network.Node]interface{}{bus: nil},
	})
	assert.NilError(t, err)

	groups := Groups{}
	g.Apply(bus, groups)
	g.Apply(node, groups)

	got := groups["triples"].(Set)
	assert.Equal(t, got.Len(), 2)
	in, _ := node.Inputs().Get(bus)
	out, _ := node.Outputs().Get(bus)
	assert.Assert(t, got.Has(FlowTriple{bus, node, in}))
	assert.Assert(t, got.Has(FlowTriple{node, bus, out}))
}
