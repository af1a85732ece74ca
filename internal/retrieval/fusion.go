package retrieval

import (
	"sort"
)

// DefaultRRFK is the standard reciprocal rank fusion constant. Lower k
// increases the weight of top-ranked hits; higher k flattens the
// contribution curve.
const DefaultRRFK = 60

// ReciprocalRankFusion merges ranked result sets into one deduplicated
// ranking. Each set contributes 1/(k+rank) per document it contains, with
// rank assigned 1..N by that set's own score ordering; documents absent
// from a set contribute nothing for it. The merged list is sorted by
// accumulated score descending, ties broken by first appearance across
// the input sets (same input order, same output order), and Rank is
// assigned 1..M with no gaps.
//
// A k of zero or below falls back to DefaultRRFK rather than erroring;
// negative fused scores are never produced.
func ReciprocalRankFusion(resultSets [][]RetrievalResult, k int) []FusedResult {
	if k <= 0 {
		k = DefaultRRFK
	}
	if len(resultSets) == 0 {
		return []FusedResult{}
	}

	type accumulator struct {
		content    string
		fusedScore float64
		components map[Source]float64
		firstSeen  int // global arrival index for stable tie-breaking
	}

	acc := make(map[string]*accumulator)
	order := 0

	for _, set := range resultSets {
		// Rank within a set follows the set's own score ordering. Input
		// sets are expected sorted already; sort defensively without
		// mutating the caller's slice.
		ranked := make([]RetrievalResult, len(set))
		copy(ranked, set)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Score > ranked[j].Score
		})

		seenInSet := make(map[string]bool, len(ranked))
		rank := 0
		for _, r := range ranked {
			if seenInSet[r.ID] {
				continue
			}
			seenInSet[r.ID] = true
			rank++

			a, ok := acc[r.ID]
			if !ok {
				a = &accumulator{
					content:    r.Content,
					components: make(map[Source]float64, 3),
					firstSeen:  order,
				}
				acc[r.ID] = a
				order++
			}
			a.fusedScore += 1.0 / float64(k+rank)
			a.components[r.Source] = r.Score
		}
	}

	if len(acc) == 0 {
		return []FusedResult{}
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ai, aj := acc[ids[i]], acc[ids[j]]
		if ai.fusedScore != aj.fusedScore {
			return ai.fusedScore > aj.fusedScore
		}
		return ai.firstSeen < aj.firstSeen
	})

	fused := make([]FusedResult, len(ids))
	for i, id := range ids {
		a := acc[id]
		fused[i] = FusedResult{
			ID:              id,
			Content:         a.content,
			FusedScore:      a.fusedScore,
			ComponentScores: a.components,
			Rank:            i + 1,
		}
	}

	return fused
}
