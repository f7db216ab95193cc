package energysystem

import (
	"fmt"
	"sort"

	"github.com/ohowland/esys_core/internal/pkg/groupings"
	"github.com/ohowland/esys_core/internal/pkg/network"
)

// NodeState is the flattened record of one node. Labels are recorded in
// string form.
type NodeState struct {
	Label            string                 `json:"label" bson:"label"`
	Kind             string                 `json:"kind" bson:"kind"`
	CustomProperties map[string]interface{} `json:"custom_properties,omitempty" bson:"custom_properties,omitempty"`
}

// EdgeState is the flattened record of one edge. Endpoints are indices into
// the snapshot's node list.
type EdgeState struct {
	Source           int                    `json:"source" bson:"source"`
	Target           int                    `json:"target" bson:"target"`
	Values           interface{}            `json:"values,omitempty" bson:"values,omitempty"`
	CustomProperties map[string]interface{} `json:"custom_properties,omitempty" bson:"custom_properties,omitempty"`
}

// State is the introspectable snapshot of a system: everything a codec
// needs, no adjacency maps, no cycles. Grouping rules are code, not data,
// and are never part of a snapshot.
type State struct {
	Nodes         []NodeState `json:"nodes" bson:"nodes"`
	Edges         []EdgeState `json:"edges" bson:"edges"`
	TimeIndex     interface{} `json:"time_index,omitempty" bson:"time_index,omitempty"`
	TimeIncrement interface{} `json:"time_increment,omitempty" bson:"time_increment,omitempty"`
	Results       interface{} `json:"results,omitempty" bson:"results,omitempty"`
}

// State flattens the system. Edges whose target lies outside the system are
// not part of the snapshot.
func (es *EnergySystem) State() State {
	index := make(map[*network.Node]int, len(es.nodes))
	nodes := make([]NodeState, len(es.nodes))
	for i, n := range es.nodes {
		index[n] = i
		nodes[i] = NodeState{
			Label:            n.String(),
			Kind:             string(n.Kind()),
			CustomProperties: copyProps(n.CustomProperties()),
		}
	}

	edges := make([]EdgeState, 0)
	for i, n := range es.nodes {
		targets := n.Outputs().Nodes()
		sort.Slice(targets, func(a, b int) bool { return targets[a].Less(targets[b]) })
		for _, target := range targets {
			j, ok := index[target]
			if !ok {
				continue
			}
			e, _ := n.Outputs().Get(target)
			edges = append(edges, EdgeState{
				Source:           i,
				Target:           j,
				Values:           e.Values(),
				CustomProperties: copyProps(e.CustomProperties()),
			})
		}
	}

	return State{
		Nodes:         nodes,
		Edges:         edges,
		TimeIndex:     es.TimeIndex,
		TimeIncrement: es.TimeIncrement,
		Results:       es.Results,
	}
}

// SetState rebuilds the system from a snapshot: fresh nodes in list order,
// edges rewired through the normal registration path, group index reset so
// the next Groups read recomputes under the system's existing rules.
func (es *EnergySystem) SetState(s State) error {
	nodes := make([]*network.Node, len(s.Nodes))
	for i, ns := range s.Nodes {
		n, err := network.New(network.Params{
			Label:            ns.Label,
			Kind:             network.Kind(ns.Kind),
			CustomProperties: ns.CustomProperties,
		})
		if err != nil {
			return err
		}
		nodes[i] = n
	}

	for _, edge := range s.Edges {
		if edge.Source < 0 || edge.Source >= len(nodes) ||
			edge.Target < 0 || edge.Target >= len(nodes) {
			return fmt.Errorf("edge endpoints (%d, %d) outside the node list", edge.Source, edge.Target)
		}
		if _, err := network.NewEdge(network.EdgeParams{
			Input:            nodes[edge.Source],
			Output:           nodes[edge.Target],
			Values:           edge.Values,
			CustomProperties: edge.CustomProperties,
		}); err != nil {
			return err
		}
	}

	es.nodes = nodes
	es.groups = make(groupings.Groups)
	es.ungrouped = 0
	es.TimeIndex = s.TimeIndex
	es.TimeIncrement = s.TimeIncrement
	es.Results = s.Results
	return nil
}

func copyProps(props map[string]interface{}) map[string]interface{} {
	if len(props) == 0 {
		return nil
	}
	c := make(map[string]interface{}, len(props))
	for k, v := range props {
		c[k] = v
	}
	return c
}
