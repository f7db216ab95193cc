package energysystem

import (
	"github.com/google/uuid"

	"github.com/ohowland/esys_core/internal/pkg/groupings"
	"github.com/ohowland/esys_core/internal/pkg/msg"
	"github.com/ohowland/esys_core/internal/pkg/network"
)

// NodeAddedEvent is the payload broadcast on msg.NodeAdded for each node
// appended to a system. The message sender is the node's own PID.
type NodeAddedEvent struct {
	Node   *network.Node
	System *EnergySystem
}

// FlowKey addresses an edge by its endpoints.
type FlowKey struct {
	Source *network.Node
	Target *network.Node
}

// Params configure New. Groupings accepts built rules or bare key functions.
type Params struct {
	Nodes         []*network.Node
	Groupings     []interface{}
	TimeIndex     interface{}
	TimeIncrement interface{}
	Results       interface{}
}

// EnergySystem ties nodes, grouping rules and the event registry together.
// The node list is append-only; the group index trails it and catches up
// when read.
type EnergySystem struct {
	pid       uuid.UUID
	publisher *msg.PubSub
	nodes     []*network.Node
	rules     []*groupings.Grouping
	groups    groupings.Groups
	ungrouped int // nodes[ungrouped:] are not folded into groups yet

	TimeIndex     interface{}
	TimeIncrement interface{}
	Results       interface{}
}

// New assembles a system: the label rule first, then the rules from p, then
// any initial nodes.
func New(p Params) (*EnergySystem, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	rules := []*groupings.Grouping{groupings.ByLabel()}
	for _, o := range p.Groupings {
		g, err := groupings.FromObject(o)
		if err != nil {
			return nil, err
		}
		rules = append(rules, g)
	}
	es := &EnergySystem{
		pid:           pid,
		publisher:     msg.NewPublisher(pid),
		nodes:         make([]*network.Node, 0),
		rules:         rules,
		groups:        make(groupings.Groups),
		TimeIndex:     p.TimeIndex,
		TimeIncrement: p.TimeIncrement,
		Results:       p.Results,
	}
	es.Add(p.Nodes...)
	return es, nil
}

// PID returns the system's id.
func (es *EnergySystem) PID() uuid.UUID {
	return es.pid
}

// Add appends nodes and notifies NodeAdded listeners for each, in order.
// The node list has list semantics; duplicates are the caller's concern.
func (es *EnergySystem) Add(nodes ...*network.Node) {
	for _, n := range nodes {
		es.nodes = append(es.nodes, n)
		es.publisher.Send(n.PID(), msg.NodeAdded, NodeAddedEvent{n, es})
	}
}

// Nodes returns the underlying node list. Callers must not mutate it.
func (es *EnergySystem) Nodes() []*network.Node {
	return es.nodes
}

// Entities is the historical name for Nodes.
func (es *EnergySystem) Entities() []*network.Node {
	return es.nodes
}

// AddGrouping registers a rule. Nodes already folded into the index are not
// revisited; nodes still awaiting their first Groups read are.
func (es *EnergySystem) AddGrouping(o interface{}) error {
	g, err := groupings.FromObject(o)
	if err != nil {
		return err
	}
	es.rules = append(es.rules, g)
	return nil
}

// Groups folds any nodes added since the last read into the group index and
// returns the live index. Each node is processed exactly once, rule-major,
// in list order.
func (es *EnergySystem) Groups() groupings.Groups {
	if es.ungrouped < len(es.nodes) {
		target := len(es.nodes)
		pending := es.nodes[es.ungrouped:target]
		for _, g := range es.rules {
			for _, n := range pending {
				g.Apply(n, es.groups)
			}
		}
		es.ungrouped = target
	}
	return es.groups
}

// Node resolves a label through the label group.
func (es *EnergySystem) Node(label interface{}) (*network.Node, bool) {
	n, ok := es.Groups()[label].(*network.Node)
	return n, ok
}

// Flows derives the edge map from the adjacency of the current nodes.
func (es *EnergySystem) Flows() map[FlowKey]*network.Edge {
	flows := make(map[FlowKey]*network.Edge)
	for _, n := range es.nodes {
		for target, e := range n.Outputs().Map() {
			flows[FlowKey{n, target}] = e
		}
	}
	return flows
}

// Subscribe registers a listener for every message on topic.
func (es *EnergySystem) Subscribe(subscriber uuid.UUID, topic msg.Topic, fn msg.Listener) {
	es.publisher.Subscribe(subscriber, topic, fn)
}

// SubscribeTo registers a listener for messages from a single sender, such
// as one node's PID.
func (es *EnergySystem) SubscribeTo(subscriber uuid.UUID, topic msg.Topic, sender uuid.UUID, fn msg.Listener) {
	es.publisher.SubscribeTo(subscriber, topic, sender, fn)
}

// Unsubscribe drops all of the subscriber's listeners.
func (es *EnergySystem) Unsubscribe(subscriber uuid.UUID) {
	es.publisher.Unsubscribe(subscriber)
}

// AttachSource forwards everything src publishes on topic into the
// system's event feed, keeping the original sender PID.
func (es *EnergySystem) AttachSource(src msg.Publisher, topic msg.Topic) {
	src.Subscribe(es.pid, topic, es.publisher.Forward)
}
