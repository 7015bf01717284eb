package search

import (
	"sort"

	"github.com/kailas-cloud/paperdex/internal/domain/search/result"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (standard value from
// Cormack et al. 2009). It dampens the influence of top-ranked-only items so
// a rank-1 hit in a single list cannot dominate the fused ordering.
const DefaultRRFK = 60

// fuse merges the lexical ranking and the vector ranking via Reciprocal Rank
// Fusion: score(d) = sum of 1/(k + rank_i(d)) over the rankings where d
// appears, ranks 1-based. Raw distances are discarded; only ordinal position
// matters, which is what makes the two score scales combinable. The output is
// the exact union of both input lists, sorted by descending score with a
// stable encounter-order tie-break, so identical inputs always produce
// identical output.
func fuse(lexical []int64, vector []result.Hit, k int) []result.Result {
	type scored struct {
		id    int64
		score float64
		order int
	}

	merged := make(map[int64]*scored, len(lexical)+len(vector))
	entries := make([]*scored, 0, len(lexical)+len(vector))

	add := func(id int64, rank int) {
		s := 1.0 / float64(k+rank)
		if e, ok := merged[id]; ok {
			e.score += s
			return
		}
		e := &scored{id: id, score: s, order: len(entries)}
		merged[id] = e
		entries = append(entries, e)
	}

	for i, id := range lexical {
		add(id, i+1)
	}
	for i, h := range vector {
		add(h.ID, i+1)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	results := make([]result.Result, len(entries))
	for i, e := range entries {
		results[i] = result.New(e.id, e.score)
	}
	return results
}
