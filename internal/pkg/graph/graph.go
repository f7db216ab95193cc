package graph

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ohowland/esys_core/internal/pkg/energysystem"
	"github.com/ohowland/esys_core/internal/pkg/network"
)

// NominalValuer is implemented by flow payloads that expose the nominal
// value used as the exported edge weight.
type NominalValuer interface {
	NominalValue() float64
}

// Node is one vertex of an exported graph.
type Node struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Inbound []string `json:"inbound,omitempty"`
}

// Edge is one directed edge of an exported graph.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Weight *float64 `json:"weight,omitempty"`
}

// Graph is the export form of an energy system: string labels only, no
// object references, stable order.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Option filters the exported graph.
type Option func(*options)

type options struct {
	removeLabels     map[string]struct{}
	removeSubstrings []string
	removeEdges      map[[2]string]struct{}
}

// RemoveNodes drops the named nodes and their incident edges.
func RemoveNodes(labels ...string) Option {
	return func(o *options) {
		for _, l := range labels {
			o.removeLabels[l] = struct{}{}
		}
	}
}

// RemoveNodesWithSubstrings drops nodes whose label contains any of subs,
// with their incident edges.
func RemoveNodesWithSubstrings(subs ...string) Option {
	return func(o *options) {
		o.removeSubstrings = append(o.removeSubstrings, subs...)
	}
}

// RemoveEdges drops the named (source, target) edges, keeping the nodes.
func RemoveEdges(pairs ...[2]string) Option {
	return func(o *options) {
		for _, p := range pairs {
			o.removeEdges[p] = struct{}{}
		}
	}
}

// FromSystem flattens es into its export form, applying any filters. Nodes
// and edges come out label-sorted.
func FromSystem(es *energysystem.EnergySystem, opts ...Option) Graph {
	o := options{
		removeLabels: make(map[string]struct{}),
		removeEdges:  make(map[[2]string]struct{}),
	}
	for _, opt := range opts {
		opt(&o)
	}

	removed := func(label string) bool {
		if _, ok := o.removeLabels[label]; ok {
			return true
		}
		for _, sub := range o.removeSubstrings {
			if strings.Contains(label, sub) {
				return true
			}
		}
		return false
	}

	nodes := make([]Node, 0, len(es.Nodes()))
	for _, n := range es.Nodes() {
		label := n.String()
		if removed(label) {
			continue
		}
		inbound := make([]string, 0, n.Inputs().Len())
		for _, src := range n.Inputs().Nodes() {
			if srcLabel := src.String(); !removed(srcLabel) {
				inbound = append(inbound, srcLabel)
			}
		}
		sort.Strings(inbound)
		nodes = append(nodes, Node{ID: label, Kind: string(n.Kind()), Inbound: inbound})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]Edge, 0)
	for key, e := range es.Flows() {
		source := key.Source.String()
		target := key.Target.String()
		if removed(source) || removed(target) {
			continue
		}
		if _, drop := o.removeEdges[[2]string{source, target}]; drop {
			continue
		}
		edges = append(edges, Edge{Source: source, Target: target, Weight: weightOf(e)})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	return Graph{Nodes: nodes, Edges: edges}
}

// weightOf extracts the nominal value from an edge payload: either through
// the NominalValuer interface or a "nominal_value" entry in a string map.
func weightOf(e *network.Edge) *float64 {
	switch v := e.Values().(type) {
	case NominalValuer:
		w := v.NominalValue()
		return &w
	case map[string]interface{}:
		switch nv := v["nominal_value"].(type) {
		case float64:
			w := nv
			return &w
		case int:
			w := float64(nv)
			return &w
		}
	}
	return nil
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlNode struct {
	ID string `xml:"id,attr"`
}

type xmlEdge struct {
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []xmlData `xml:"data"`
}

type xmlGraph struct {
	ID          string    `xml:"id,attr"`
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type xmlGraphML struct {
	XMLName xml.Name `xml:"graphml"`
	XMLNS   string   `xml:"xmlns,attr"`
	Keys    []xmlKey `xml:"key"`
	Graph   xmlGraph `xml:"graph"`
}

// WriteGraphML writes g as a directed GraphML document. Weights are carried
// on the d0 edge key, formatted to two decimals.
func WriteGraphML(w io.Writer, g Graph) error {
	doc := xmlGraphML{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []xmlKey{
			{ID: "d0", For: "edge", AttrName: "weight", AttrType: "double"},
		},
		Graph: xmlGraph{ID: "G", EdgeDefault: "directed"},
	}
	for _, n := range g.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, xmlNode{ID: n.ID})
	}
	for _, e := range g.Edges {
		xe := xmlEdge{Source: e.Source, Target: e.Target}
		if e.Weight != nil {
			xe.Data = append(xe.Data, xmlData{Key: "d0", Value: fmt.Sprintf("%.2f", *e.Weight)})
		}
		doc.Graph.Edges = append(doc.Graph.Edges, xe)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

// WriteGraphMLFile writes g to path, appending the .graphml suffix when
// missing.
func WriteGraphMLFile(path string, g Graph) error {
	if !strings.HasSuffix(path, ".graphml") {
		path += ".graphml"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteGraphML(f, g)
}
