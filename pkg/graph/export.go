package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// NodeRecord is the exported form of a node.
type NodeRecord struct {
	ID         string   `json:"id" msgpack:"id"`
	Label      string   `json:"label" msgpack:"label"`
	Category   Category `json:"category" msgpack:"category"`
	Path       string   `json:"path" msgpack:"path"`
	InDegree   int      `json:"in_degree" msgpack:"in"`
	OutDegree  int      `json:"out_degree" msgpack:"out"`
	EntryPoint bool     `json:"entry_point" msgpack:"entry"`
	Reachable  bool     `json:"reachable" msgpack:"reachable"`
	Depth      *int     `json:"depth,omitempty" msgpack:"depth,omitempty"`
}

// EdgeRecord is the exported form of an edge.
type EdgeRecord struct {
	Source string `json:"source" msgpack:"s"`
	Target string `json:"target" msgpack:"t"`
}

// Snapshot is a serializable copy of a graph and its analysis annotations.
type Snapshot struct {
	Nodes []NodeRecord `json:"nodes" msgpack:"nodes"`
	Edges []EdgeRecord `json:"edges" msgpack:"edges"`
}

// Annotations carry per-node analysis results into an export.
type Annotations struct {
	EntryPoints Set
	Reachable   Set
	Depths      map[string]int
}

// Export builds a snapshot with nodes sorted by id and edges by (source, target).
func Export(g *Graph, ann Annotations) *Snapshot {
	snap := &Snapshot{
		Nodes: make([]NodeRecord, 0, g.Len()),
		Edges: make([]EdgeRecord, 0, g.EdgeCount()),
	}

	for _, id := range g.ids {
		n := g.nodes[id]
		rec := NodeRecord{
			ID:         id,
			Label:      n.Label(),
			Category:   n.Category,
			Path:       id,
			InDegree:   len(g.reverse[id]),
			OutDegree:  len(g.forward[id]),
			EntryPoint: ann.EntryPoints.Has(id),
			Reachable:  ann.Reachable.Has(id),
		}
		if d, ok := ann.Depths[id]; ok {
			depth := d
			rec.Depth = &depth
		}
		snap.Nodes = append(snap.Nodes, rec)

		for _, target := range g.forward[id].Sorted() {
			snap.Edges = append(snap.Edges, EdgeRecord{Source: id, Target: target})
		}
	}

	return snap
}

// WriteJSON writes the snapshot as indented JSON.
func (s *Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// WriteMsgpack writes the snapshot in msgpack format.
func (s *Snapshot) WriteMsgpack(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// ReadMsgpack decodes a snapshot written by WriteMsgpack.
func ReadMsgpack(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &s, nil
}
