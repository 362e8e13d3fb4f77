package pagestate

import "sort"

// GraphFormat identifies the representation a graph document encodes.
type GraphFormat string

// GraphFormatEdgeList represents the flat state/edge listing.
const GraphFormatEdgeList GraphFormat = "edge-list"

// GraphDocument is a JSON-serialisable snapshot of the declared state
// machine, intended for tooling and visualization.
type GraphDocument struct {
	Format GraphFormat  `json:"format"`
	States []GraphState `json:"states"`
	Layers []GraphLayer `json:"layers"`
	Edges  []GraphEdge  `json:"edges"`
}

// GraphState describes one base state; Priority is its declaration index.
type GraphState struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// GraphLayer describes one layer and its declared values.
type GraphLayer struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// GraphEdge describes one transition. Default edges originate at the
// synthetic unknown state; composite edges are keyed by canonical fragment
// keys rather than bare state names.
type GraphEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Cost      int    `json:"cost"`
	Default   bool   `json:"default,omitempty"`
	Composite bool   `json:"composite,omitempty"`
}

// ExportGraph returns the declared machine as a graph document with
// deterministic ordering.
func (m *Machine) ExportGraph() GraphDocument {
	doc := GraphDocument{
		Format: GraphFormatEdgeList,
		States: make([]GraphState, 0, len(m.states)),
		Layers: make([]GraphLayer, 0, len(m.layers)),
	}
	for i, entry := range m.states {
		doc.States = append(doc.States, GraphState{Name: entry.name, Priority: i})
	}
	for _, layer := range m.layers {
		values := make([]string, len(layer.order))
		copy(values, layer.order)
		doc.Layers = append(doc.Layers, GraphLayer{Name: layer.name, Values: values})
	}

	for start, out := range m.edges {
		for end, e := range out {
			doc.Edges = append(doc.Edges, GraphEdge{From: start, To: end, Cost: e.cost})
		}
	}
	for end, e := range m.defaultEdge {
		doc.Edges = append(doc.Edges, GraphEdge{From: UnknownState, To: end, Cost: e.cost, Default: true})
	}
	for _, out := range m.fragEdges {
		for _, fe := range out {
			// Simple edges are mirrored into the fragment table; skip the
			// mirrors so each declared transition appears once.
			if fe.start.Base() != "" && len(fe.start) == 1 && len(fe.end) == 1 {
				continue
			}
			doc.Edges = append(doc.Edges, GraphEdge{From: fe.start.Key(), To: fe.end.Key(), Cost: fe.cost, Composite: true})
		}
	}

	sort.Slice(doc.Edges, func(i, j int) bool {
		if doc.Edges[i].From == doc.Edges[j].From {
			return doc.Edges[i].To < doc.Edges[j].To
		}
		return doc.Edges[i].From < doc.Edges[j].From
	})
	return doc
}
