package facts

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// VerificationResult reports whether a fact still matches the file on disk.
type VerificationResult struct {
	Verified      bool    `json:"verified"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason,omitempty"`
	ActualContent string  `json:"actualContent,omitempty"`
}

// Verification failure reasons.
const (
	ReasonFileNotFound    = "file_not_found"
	ReasonLineOutOfRange  = "line_out_of_range"
	ReasonContentMismatch = "content_mismatch"
)

// FactMatch pairs an expected fact with the actual fact it matched.
type FactMatch struct {
	Expected   VerifiableFact `json:"expected"`
	Actual     VerifiableFact `json:"actual"`
	Similarity float64        `json:"similarity"`
}

// ComparisonResult summarizes how two fact sets line up.
type ComparisonResult struct {
	TotalExpected int              `json:"totalExpected"`
	TotalActual   int              `json:"totalActual"`
	Matched       int              `json:"matched"`
	Missing       int              `json:"missing"`
	Extra         int              `json:"extra"`
	Precision     float64          `json:"precision"`
	Recall        float64          `json:"recall"`
	F1Score       float64          `json:"f1Score"`
	Matches       []FactMatch      `json:"matches"`
	MissingFacts  []VerifiableFact `json:"missingFacts"`
	ExtraFacts    []VerifiableFact `json:"extraFacts"`
}

// ExtractVerifiable parses a file and returns its facts in the
// normalized comparison shape.
func (e *Extractor) ExtractVerifiable(ctx context.Context, path string) []VerifiableFact {
	return ToVerifiable(e.ExtractFile(ctx, path))
}

// ToVerifiable converts rich AST facts into the flat comparison shape.
// Facts whose type has no verifiable counterpart are dropped.
func ToVerifiable(astFacts []ASTFact) []VerifiableFact {
	out := make([]VerifiableFact, 0, len(astFacts))
	for _, f := range astFacts {
		vType, ok := verifiableType(f.Type)
		if !ok {
			continue
		}
		out = append(out, VerifiableFact{
			FactID:     fmt.Sprintf("%s:%d:%s:%s", f.File, f.Line, vType, f.Identifier),
			FactType:   vType,
			Location:   Location{File: f.File, Line: f.Line, Column: 1},
			Content:    f.Identifier,
			Verifiable: true,
			Confidence: 1.0,
		})

		// Class relationships become their own facts.
		if f.Type == FactClass {
			if f.Details.Extends != "" {
				out = append(out, relationFact(f, VerifiableInheritance, f.Details.Extends))
			}
			for _, iface := range f.Details.Implements {
				out = append(out, relationFact(f, VerifiableImplementation, iface))
			}
		}
	}
	return out
}

func relationFact(f ASTFact, factType VerifiableFactType, target string) VerifiableFact {
	content := f.Identifier + " -> " + target
	return VerifiableFact{
		FactID:     fmt.Sprintf("%s:%d:%s:%s", f.File, f.Line, factType, content),
		FactType:   factType,
		Location:   Location{File: f.File, Line: f.Line, Column: 1},
		Content:    content,
		Verifiable: true,
		Confidence: 1.0,
	}
}

func verifiableType(astType FactType) (VerifiableFactType, bool) {
	switch astType {
	case FactFunctionDef, FactClass, FactType_:
		return VerifiableTypeDef, true
	case FactImport:
		return VerifiableImport, true
	case FactExport:
		return VerifiableExport, true
	case FactCall:
		return VerifiableFunctionCall, true
	}
	return "", false
}

// VerifyFact re-reads the file at the fact's location and checks the line
// still exists and still mentions the fact's content.
func VerifyFact(fact VerifiableFact) VerificationResult {
	data, err := os.ReadFile(fact.Location.File)
	if err != nil {
		return VerificationResult{Reason: ReasonFileNotFound}
	}

	lines := strings.Split(string(data), "\n")
	if fact.Location.Line < 1 || fact.Location.Line > len(lines) {
		return VerificationResult{Reason: ReasonLineOutOfRange}
	}

	actual := lines[fact.Location.Line-1]
	result := VerificationResult{ActualContent: actual}

	if fact.Content == "" || strings.Contains(actual, primaryToken(fact.Content)) {
		result.Verified = true
		result.Confidence = 0.95
		return result
	}

	result.Reason = ReasonContentMismatch
	result.Confidence = contentSimilarity(fact.Content, actual) * 0.5
	return result
}

// CompareFacts matches expected facts against actual facts and reports
// precision, recall, and F1. Matching is greedy: each expected fact takes
// the best unclaimed actual fact of the same type above the similarity
// threshold.
func CompareFacts(expected, actual []VerifiableFact) ComparisonResult {
	result := ComparisonResult{
		TotalExpected: len(expected),
		TotalActual:   len(actual),
		Matches:       []FactMatch{},
		MissingFacts:  []VerifiableFact{},
		ExtraFacts:    []VerifiableFact{},
	}

	claimed := make([]bool, len(actual))
	for _, exp := range expected {
		bestIdx := -1
		bestScore := 0.0
		for i, act := range actual {
			if claimed[i] || act.FactType != exp.FactType {
				continue
			}
			score := factSimilarity(exp, act)
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestScore >= 0.6 {
			claimed[bestIdx] = true
			result.Matched++
			result.Matches = append(result.Matches, FactMatch{
				Expected:   exp,
				Actual:     actual[bestIdx],
				Similarity: bestScore,
			})
		} else {
			result.Missing++
			result.MissingFacts = append(result.MissingFacts, exp)
		}
	}

	for i, act := range actual {
		if !claimed[i] {
			result.Extra++
			result.ExtraFacts = append(result.ExtraFacts, act)
		}
	}

	if result.TotalExpected > 0 {
		result.Recall = float64(result.Matched) / float64(result.TotalExpected)
	}
	if result.TotalActual > 0 {
		result.Precision = float64(result.Matched) / float64(result.TotalActual)
	}
	if result.Precision+result.Recall > 0 {
		result.F1Score = 2 * result.Precision * result.Recall / (result.Precision + result.Recall)
	}
	return result
}

// factSimilarity blends identity, location, and content agreement.
func factSimilarity(a, b VerifiableFact) float64 {
	if a.FactID == b.FactID {
		return 1.0
	}

	score := 0.0
	if a.Location.File == b.Location.File {
		score += 0.3
		diff := a.Location.Line - b.Location.Line
		if diff < 0 {
			diff = -diff
		}
		if diff == 0 {
			score += 0.2
		} else if diff <= 2 {
			score += 0.1
		}
	}
	score += 0.5 * contentSimilarity(a.Content, b.Content)
	return score
}

// contentSimilarity is token overlap (Jaccard) over lowercased words.
func contentSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	overlap := 0
	for tok := range ta {
		if tb[tok] {
			overlap++
		}
	}
	union := len(ta) + len(tb) - overlap
	return float64(overlap) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if len(tok) > 1 {
			set[tok] = true
		}
	}
	return set
}

// primaryToken returns the first whitespace-delimited token, so that
// relationship contents like "Child -> Base" still match their source line.
func primaryToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
