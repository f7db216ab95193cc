package groupings

import (
	"fmt"

	"github.com/ohowland/esys_core/internal/pkg/network"
)

// Groups is the shared index populated by grouping rules. Keys are group
// identifiers, values are whatever the contributing rules merged in.
type Groups map[interface{}]interface{}

// Set is the unordered collection used for set-valued groups.
type Set map[interface{}]struct{}

// NewSet builds a set from its members.
func NewSet(members ...interface{}) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts v.
func (s Set) Add(v interface{}) {
	s[v] = struct{}{}
}

// Has reports membership of v.
func (s Set) Has(v interface{}) bool {
	_, ok := s[v]
	return ok
}

// Len returns the member count.
func (s Set) Len() int {
	return len(s)
}

// Union returns a new set holding the members of both operands.
func (s Set) Union(other Set) Set {
	u := make(Set, len(s)+len(other))
	for m := range s {
		u[m] = struct{}{}
	}
	for m := range other {
		u[m] = struct{}{}
	}
	return u
}

// Members returns the elements in map order.
func (s Set) Members() []interface{} {
	members := make([]interface{}, 0, len(s))
	for m := range s {
		members = append(members, m)
	}
	return members
}

// KeyFunc derives group identifiers from a node. Returning nil files
// nothing; returning []interface{} files the value under each element.
type KeyFunc func(*network.Node) interface{}

// ValueFunc computes what gets inserted into a group for a node.
type ValueFunc func(*network.Node) interface{}

// FilterFunc reports whether a value element is retained.
type FilterFunc func(interface{}) bool

// NotOverriddenError marks an unset base implementation invoked directly.
type NotOverriddenError struct {
	Component string
}

func (e *NotOverriddenError) Error() string {
	return fmt.Sprintf("groupings: no default implementation for %s", e.Component)
}

// Params configure New and the grouping variants. Exactly one of Key and
// ConstantKey must be supplied. ConstantKey is used verbatim and never
// invoked, so invocable values can serve as literal keys.
type Params struct {
	Key         KeyFunc
	ConstantKey interface{}
	Value       ValueFunc
	Filter      FilterFunc
}

// Grouping files each node added to an energy system into a shared group
// index. The zero value has no key source; build rules through New or one of
// the variants.
type Grouping struct {
	key         KeyFunc
	constantKey interface{}
	hasConstant bool
	value       ValueFunc
	filter      FilterFunc
}

// New validates p and returns the base rule: values are merged scalar-style,
// last write wins on key collision.
func New(p Params) (*Grouping, error) {
	if p.Key != nil && p.ConstantKey != nil {
		return nil, &network.ConflictingArgumentsError{A: "key", B: "constant_key"}
	}
	if p.Key == nil && p.ConstantKey == nil {
		return nil, &network.MissingArgumentError{Args: []string{"key", "constant_key"}}
	}
	return &Grouping{
		key:         p.Key,
		constantKey: p.ConstantKey,
		hasConstant: p.ConstantKey != nil,
		value:       p.Value,
		filter:      p.Filter,
	}, nil
}

// Nodes groups the added nodes themselves into sets.
func Nodes(p Params) (*Grouping, error) {
	if p.Value == nil {
		p.Value = func(n *network.Node) interface{} {
			return NewSet(n)
		}
	}
	return New(p)
}

// Entities is the historical name for Nodes.
func Entities(p Params) (*Grouping, error) {
	return Nodes(p)
}

// Flows groups the edges incident to each added node into sets.
func Flows(p Params) (*Grouping, error) {
	if p.Value == nil {
		p.Value = func(n *network.Node) interface{} {
			s := NewSet()
			for _, e := range n.Inputs().Edges() {
				s.Add(e)
			}
			for _, e := range n.Outputs().Edges() {
				s.Add(e)
			}
			return s
		}
	}
	return New(p)
}

// FlowTriple records an edge together with its endpoints.
type FlowTriple struct {
	Source *network.Node
	Target *network.Node
	Edge   *network.Edge
}

// FlowsWithNodes groups the (source, target, edge) triples incident to each
// added node into sets.
func FlowsWithNodes(p Params) (*Grouping, error) {
	if p.Value == nil {
		p.Value = func(n *network.Node) interface{} {
			s := NewSet()
			for src, e := range n.Inputs().Map() {
				s.Add(FlowTriple{src, n, e})
			}
			for tgt, e := range n.Outputs().Map() {
				s.Add(FlowTriple{n, tgt, e})
			}
			return s
		}
	}
	return New(p)
}

// ByLabel is the rule every energy system starts with: groups[label]
// resolves to the most recently added node carrying that label.
func ByLabel() *Grouping {
	g, err := New(Params{Key: func(n *network.Node) interface{} {
		return n.Label()
	}})
	if err != nil {
		panic(err)
	}
	return g
}

// FromObject normalizes a grouping argument. Bare key functions become node
// set rules; built rules pass through.
func FromObject(o interface{}) (*Grouping, error) {
	switch v := o.(type) {
	case *Grouping:
		return v, nil
	case KeyFunc:
		return Nodes(Params{Key: v})
	case func(*network.Node) interface{}:
		return Nodes(Params{Key: v})
	default:
		return nil, &network.TypeMismatchError{
			Side:  "groupings",
			Owner: "energy system",
			Want:  "*Grouping or key func",
			Value: o,
		}
	}
}

// Key returns the raw group identifier for n: the constant key verbatim when
// one was supplied, else the key function's result. Invoking the unset base
// is a contract violation.
func (g *Grouping) Key(n *network.Node) interface{} {
	if g.hasConstant {
		return g.constantKey
	}
	if g.key == nil {
		panic(&NotOverriddenError{"key"})
	}
	return g.key(n)
}

// Value computes what gets merged into a group for n. The default is the
// node itself.
func (g *Grouping) Value(n *network.Node) interface{} {
	if g.value != nil {
		return g.value(n)
	}
	return n
}

// Filter reports whether a value element is retained. Apply treats an unset
// filter as pass-all without routing through here; invoking the unset base
// directly is a contract violation.
func (g *Grouping) Filter(v interface{}) bool {
	if g.filter == nil {
		panic(&NotOverriddenError{"filter"})
	}
	return g.filter(v)
}

// Apply files n into groups under this rule.
func (g *Grouping) Apply(n *network.Node, groups Groups) {
	keys := g.keysFor(n)
	if len(keys) == 0 {
		return
	}
	value, ok := g.filtered(g.Value(n))
	if !ok {
		return
	}
	for _, k := range keys {
		old, exists := groups[k]
		if !exists {
			groups[k] = value
			continue
		}
		groups[k] = merge(value, old)
	}
}

// keysFor expands the raw key into the list of group identifiers, dropping
// nil. nil is never a valid group identifier.
func (g *Grouping) keysFor(n *network.Node) []interface{} {
	raw := g.Key(n)
	switch v := raw.(type) {
	case nil:
		return nil
	case []interface{}:
		keys := make([]interface{}, 0, len(v))
		for _, k := range v {
			if k != nil {
				keys = append(keys, k)
			}
		}
		return keys
	default:
		return []interface{}{raw}
	}
}

// filtered applies the filter elementwise to collection values, recombining
// the survivors into the same container type. A scalar value failing the
// filter drops the insertion entirely.
func (g *Grouping) filtered(value interface{}) (interface{}, bool) {
	if g.filter == nil {
		return value, true
	}
	switch v := value.(type) {
	case Set:
		kept := NewSet()
		for m := range v {
			if g.filter(m) {
				kept.Add(m)
			}
		}
		return kept, true
	case map[interface{}]interface{}:
		kept := make(map[interface{}]interface{}, len(v))
		for k, val := range v {
			if g.filter(val) {
				kept[k] = val
			}
		}
		return kept, true
	case []interface{}:
		kept := make([]interface{}, 0, len(v))
		for _, m := range v {
			if g.filter(m) {
				kept = append(kept, m)
			}
		}
		return kept, true
	default:
		if g.filter(value) {
			return value, true
		}
		return nil, false
	}
}

// merge combines a new value with an existing group entry: sets union, maps
// update, anything else is overwritten by the newcomer.
func merge(new, old interface{}) interface{} {
	switch o := old.(type) {
	case Set:
		if n, ok := new.(Set); ok {
			return o.Union(n)
		}
	case map[interface{}]interface{}:
		if n, ok := new.(map[interface{}]interface{}); ok {
			merged := make(map[interface{}]interface{}, len(o)+len(n))
			for k, v := range o {
				merged[k] = v
			}
			for k, v := range n {
				merged[k] = v
			}
			return merged
		}
	}
	return new
}
