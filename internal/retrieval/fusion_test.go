package retrieval

import (
	"math"
	"testing"
)

func result(id string, score float64, source Source) RetrievalResult {
	return RetrievalResult{ID: id, Content: "content " + id, Score: score, Source: source}
}

func TestRRFSingleSetSingleDoc(t *testing.T) {
	sets := [][]RetrievalResult{
		{result("a", 0.9, SourceLexical)},
	}

	fused := ReciprocalRankFusion(sets, 60)
	if len(fused) != 1 {
		t.Fatalf("expected 1 result, got %d", len(fused))
	}

	want := 1.0 / 61.0
	if math.Abs(fused[0].FusedScore-want) > 1e-12 {
		t.Errorf("fusedScore = %v, want exactly %v", fused[0].FusedScore, want)
	}
	if fused[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", fused[0].Rank)
	}
}

func TestRRFDocInTwoSets(t *testing.T) {
	sets := [][]RetrievalResult{
		{result("a", 0.9, SourceLexical)},
		{result("a", 0.8, SourceDense)},
	}

	fused := ReciprocalRankFusion(sets, 60)
	if len(fused) != 1 {
		t.Fatalf("dedup failed: got %d entries", len(fused))
	}

	want := 2.0 / 61.0
	if math.Abs(fused[0].FusedScore-want) > 1e-12 {
		t.Errorf("fusedScore = %v, want %v", fused[0].FusedScore, want)
	}

	// Component scores audit each channel's raw contribution.
	if fused[0].ComponentScores[SourceLexical] != 0.9 {
		t.Errorf("lexical component = %v, want 0.9", fused[0].ComponentScores[SourceLexical])
	}
	if fused[0].ComponentScores[SourceDense] != 0.8 {
		t.Errorf("dense component = %v, want 0.8", fused[0].ComponentScores[SourceDense])
	}
}

func TestRRFMonotonicityInK(t *testing.T) {
	sets := [][]RetrievalResult{
		{result("a", 1.0, SourceLexical)},
	}

	low := ReciprocalRankFusion(sets, 10)[0].FusedScore
	high := ReciprocalRankFusion(sets, 100)[0].FusedScore

	if low <= high {
		t.Errorf("lower k should strictly increase rank-1 score: k=10 gives %v, k=100 gives %v", low, high)
	}
}

func TestRRFNonPositiveKFallsBackToDefault(t *testing.T) {
	sets := [][]RetrievalResult{
		{result("a", 1.0, SourceLexical)},
	}

	want := 1.0 / float64(DefaultRRFK+1)
	for _, k := range []int{0, -5} {
		got := ReciprocalRankFusion(sets, k)[0].FusedScore
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("k=%d: fusedScore = %v, want default-k score %v", k, got, want)
		}
	}
}

func TestRRFDedupAcrossManySets(t *testing.T) {
	sets := [][]RetrievalResult{
		{result("x", 0.9, SourceLexical), result("y", 0.5, SourceLexical)},
		{result("x", 0.7, SourceDense)},
		{result("x", 0.6, SourceGraph), result("z", 0.4, SourceGraph)},
	}

	fused := ReciprocalRankFusion(sets, 60)

	count := 0
	for _, f := range fused {
		if f.ID == "x" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("document x appears %d times, want exactly 1", count)
	}
	if len(fused) != 3 {
		t.Errorf("expected 3 distinct documents, got %d", len(fused))
	}
	// x appears at rank 1 in all three sets; it must win.
	if fused[0].ID != "x" {
		t.Errorf("top result = %s, want x", fused[0].ID)
	}
}

func TestRRFRanksContiguous(t *testing.T) {
	sets := [][]RetrievalResult{
		{result("a", 0.9, SourceLexical), result("b", 0.8, SourceLexical), result("c", 0.7, SourceLexical)},
		{result("b", 0.9, SourceDense), result("d", 0.3, SourceDense)},
	}

	fused := ReciprocalRankFusion(sets, 60)
	for i, f := range fused {
		if f.Rank != i+1 {
			t.Errorf("rank at index %d = %d, want %d", i, f.Rank, i+1)
		}
	}
	for i := 1; i < len(fused); i++ {
		if fused[i].FusedScore > fused[i-1].FusedScore {
			t.Errorf("results not sorted descending at index %d", i)
		}
	}
}

func TestRRFStableTieBreak(t *testing.T) {
	// a and b get identical contributions; a arrives first and must stay first.
	sets := [][]RetrievalResult{
		{result("a", 1.0, SourceLexical)},
		{result("b", 1.0, SourceDense)},
	}

	for range 10 {
		fused := ReciprocalRankFusion(sets, 60)
		if fused[0].ID != "a" || fused[1].ID != "b" {
			t.Fatalf("tie-break not stable: got %s, %s", fused[0].ID, fused[1].ID)
		}
	}
}

func TestRRFEmptyInputs(t *testing.T) {
	if got := ReciprocalRankFusion(nil, 60); len(got) != 0 {
		t.Errorf("nil input: got %d results", len(got))
	}
	if got := ReciprocalRankFusion([][]RetrievalResult{{}, {}}, 60); len(got) != 0 {
		t.Errorf("all-empty sets: got %d results", len(got))
	}
}
