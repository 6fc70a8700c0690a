package helm

import (
	"errors"
	"sort"

	"github.com/dominikbraun/graph"
)

// Topology describes how the polymers of a notation hang together.
type Topology struct {
	// Components groups polymer IDs joined by any connection, base pairs
	// included. Components and their members follow written polymer order.
	Components [][]string `json:"components"`
	// Cyclic is set when the covalent connections close a ring, either inside
	// one polymer or across several.
	Cyclic bool `json:"cyclic"`
	// Duplex is set when at least one base pair joins two different polymers.
	Duplex bool `json:"duplex"`
}

// BuildTopology derives the connection topology of n. Connections naming
// unknown polymers are ignored; Validate reports them.
func BuildTopology(n *Notation) (*Topology, error) {
	all := graph.New(graph.StringHash)
	covalent := graph.New(graph.StringHash)
	order := make(map[string]int, len(n.Polymers))
	for i, p := range n.Polymers {
		order[p.ID] = i
		if err := all.AddVertex(p.ID); err != nil {
			return nil, err
		}
		if err := covalent.AddVertex(p.ID); err != nil {
			return nil, err
		}
	}

	t := &Topology{}
	for _, c := range n.Connections {
		a, b := c.Source.PolymerID, c.Target.PolymerID
		_, okA := order[a]
		_, okB := order[b]
		if !okA || !okB {
			continue
		}
		if a == b {
			if !c.IsPair() {
				t.Cyclic = true
			}
			continue
		}
		if err := addEdge(all, a, b); err != nil {
			return nil, err
		}
		if c.IsPair() {
			t.Duplex = true
			continue
		}
		cycle, err := graph.CreatesCycle(covalent, a, b)
		if err != nil {
			return nil, err
		}
		if cycle {
			t.Cyclic = true
		}
		if err := addEdge(covalent, a, b); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(n.Polymers))
	for _, p := range n.Polymers {
		if seen[p.ID] {
			continue
		}
		var comp []string
		err := graph.BFS(all, p.ID, func(id string) bool {
			seen[id] = true
			comp = append(comp, id)
			return false
		})
		if err != nil {
			return nil, err
		}
		sort.Slice(comp, func(i, j int) bool { return order[comp[i]] < order[comp[j]] })
		t.Components = append(t.Components, comp)
	}
	return t, nil
}

func addEdge(g graph.Graph[string, string], a, b string) error {
	if err := g.AddEdge(a, b); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	return nil
}
