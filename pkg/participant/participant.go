// Package participant turns simulated walks into per-participant records and
// assembles the cumulative corpus handed to reconstruction methods.
package participant

import (
	"fmt"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// IndexSpace selects whether walks are expressed with global node indices
// or with each participant's local indices
type IndexSpace int

const (
	Global IndexSpace = iota
	Local
)

func (s IndexSpace) String() string {
	if s == Local {
		return "local"
	}
	return "global"
}

// Record is everything generated for one simulated participant.
// It is immutable after creation; accessors hand out copies.
type Record struct {
	global      walk.WalkList
	local       walk.WalkList
	items       *network.Items
	localToGlob []int
	startSeed   int64
	endSeed     int64
}

// NewRecord builds a record from global walks, deriving the local view
func NewRecord(walks walk.WalkList, global *network.Items, startSeed, endSeed int64) (*Record, error) {
	local, items, table, err := ToLocal(walks, global)
	if err != nil {
		return nil, err
	}
	return &Record{
		global:      walks.Clone(),
		local:       local,
		items:       items,
		localToGlob: table,
		startSeed:   startSeed,
		endSeed:     endSeed,
	}, nil
}

// GlobalWalks returns the lists in global index space
func (r *Record) GlobalWalks() walk.WalkList { return r.global.Clone() }

// LocalWalks returns the lists in the participant's local index space
func (r *Record) LocalWalks() walk.WalkList { return r.local.Clone() }

// Walks returns the lists in the requested index space
func (r *Record) Walks(space IndexSpace) walk.WalkList {
	if space == Local {
		return r.LocalWalks()
	}
	return r.GlobalWalks()
}

// Items returns the local dictionary: local index -> global label
func (r *Record) Items() *network.Items {
	items, _ := network.NewItems(r.items.Labels())
	return items
}

// LocalToGlobal returns the local -> global index table
func (r *Record) LocalToGlobal() []int {
	return append([]int(nil), r.localToGlob...)
}

// UniqueNodes is the number of distinct items this participant emitted
func (r *Record) UniqueNodes() int { return len(r.localToGlob) }

// SeedRange returns the half-open range of seeds consumed by this participant
func (r *Record) SeedRange() (start, end int64) { return r.startSeed, r.endSeed }

// ToLocal reindexes walks contiguously from 0 in first-appearance order.
// It returns the local walks, a local dictionary carrying the global labels
// and the local -> global index table, so that table[local[i][j]] == walks[i][j].
func ToLocal(walks walk.WalkList, global *network.Items) (walk.WalkList, *network.Items, []int, error) {
	globalToLocal := make(map[int]int)
	var table []int
	localItems, _ := network.NewItems(nil)

	local := make(walk.WalkList, len(walks))
	for i, list := range walks {
		local[i] = make([]int, len(list))
		for j, node := range list {
			idx, ok := globalToLocal[node]
			if !ok {
				label, known := global.Label(node)
				if !known {
					return nil, nil, nil, fmt.Errorf("node %d in list %d is not in the item dictionary (%d items)", node, i, global.Len())
				}
				idx = len(table)
				globalToLocal[node] = idx
				table = append(table, node)
				if _, err := localItems.Add(label); err != nil {
					return nil, nil, nil, err
				}
			}
			local[i][j] = idx
		}
	}
	return local, localItems, table, nil
}

// ToGlobal maps local walks back through a local -> global table
func ToGlobal(local walk.WalkList, table []int) (walk.WalkList, error) {
	out := make(walk.WalkList, len(local))
	for i, list := range local {
		out[i] = make([]int, len(list))
		for j, idx := range list {
			if idx < 0 || idx >= len(table) {
				return nil, fmt.Errorf("local index %d out of range [0,%d)", idx, len(table))
			}
			out[i][j] = table[idx]
		}
	}
	return out, nil
}

// CumulativeCorpus concatenates the lists of records in participant order.
// Lists are never reordered or deduplicated, and the result is a fresh copy.
func CumulativeCorpus(records []*Record, space IndexSpace) walk.WalkList {
	var corpus walk.WalkList
	for _, r := range records {
		corpus = append(corpus, r.Walks(space)...)
	}
	return corpus
}

// Generate simulates numsubs participants on g. Participant k consumes the
// seeds [seed+k*NumX, seed+(k+1)*NumX); the advanced counter is returned.
func Generate(g *network.Graph, items *network.Items, cfg walk.Config, numsubs int, seed int64) ([]*Record, int64, error) {
	if numsubs <= 0 {
		return nil, seed, simerr.Config("simulation.numsubs", numsubs, "must be at least 1")
	}
	if g == nil {
		return nil, seed, &simerr.GraphError{Reason: "no ground-truth graph"}
	}
	if items == nil || items.Len() != g.NumNodes {
		return nil, seed, &simerr.GraphError{Reason: fmt.Sprintf("item dictionary does not cover the %d graph nodes", g.NumNodes)}
	}

	records := make([]*Record, 0, numsubs)
	next := seed
	for sub := 0; sub < numsubs; sub++ {
		walks, advanced, err := walk.Generate(g, cfg, next)
		if err != nil {
			return nil, seed, fmt.Errorf("participant %d: %w", sub, err)
		}

		rec, err := NewRecord(walks, items, next, advanced)
		if err != nil {
			return nil, seed, fmt.Errorf("participant %d: %w", sub, err)
		}
		records = append(records, rec)
		next = advanced
	}
	return records, next, nil
}
