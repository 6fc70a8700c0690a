package helm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/canon"
)

// polymerLink is one connection end seen from the polymer owning it. partner
// is -1 for connections within the polymer.
type polymerLink struct {
	own     string
	partner int
	other   string
}

func polymerLinks(n *Notation, polys []*Polymer) [][]polymerLink {
	byID := make(map[string]int, len(polys))
	for k, p := range polys {
		byID[p.ID] = k
	}
	out := make([][]polymerLink, len(polys))
	add := func(own, other Endpoint) {
		i, ok := byID[own.PolymerID]
		if !ok {
			return
		}
		partner := -1
		if other.PolymerID != own.PolymerID {
			k, ok := byID[other.PolymerID]
			if !ok {
				return
			}
			partner = k
		}
		out[i] = append(out[i], polymerLink{
			own:     fmt.Sprintf("%d:%s", own.Position, own.Attachment),
			partner: partner,
			other:   fmt.Sprintf("%d:%s", other.Position, other.Attachment),
		})
	}
	for _, c := range n.Connections {
		add(c.Source, c.Target)
		add(c.Target, c.Source)
	}
	return out
}

// refine splits polymer classes by the classes of their connection partners
// until the number of classes stops growing. The relative order of existing
// classes is kept.
func refine(rank []int, links [][]polymerLink) []int {
	classes := canon.Classes(rank)
	for classes < len(rank) {
		keys := make([]string, len(rank))
		for i := range rank {
			parts := make([]string, 0, len(links[i]))
			for _, l := range links[i] {
				partner := "self"
				if l.partner >= 0 {
					partner = fmt.Sprintf("%06d", rank[l.partner])
				}
				parts = append(parts, l.own+">"+partner+":"+l.other)
			}
			sort.Strings(parts)
			keys[i] = fmt.Sprintf("%06d|%s", rank[i], strings.Join(parts, ";"))
		}
		next := canon.RankKeys(keys)
		nc := canon.Classes(next)
		rank = next
		if nc == classes {
			break
		}
		classes = nc
	}
	return rank
}
