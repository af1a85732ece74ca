package citation

import (
	"context"
	"fmt"
)

// GenerateReport extracts citations from a document, verifies them, and
// synthesizes a quality assessment with prioritized recommendations.
func (v *Verifier) GenerateReport(ctx context.Context, sourceDocument, repoRoot string, concurrency int) Report {
	citations := ExtractCitations(sourceDocument)
	batch := v.VerifyBatch(ctx, citations, repoRoot, concurrency)

	report := Report{
		Quality:         assessQuality(batch.Statistics),
		Batch:           batch,
		GroundingChain:  []string{},
		Recommendations: []Recommendation{},
	}

	for _, r := range batch.Results {
		if r.Grounding != nil && r.Grounding.Type == "evidential" {
			report.GroundingChain = append(report.GroundingChain,
				fmt.Sprintf("%s -> %s", r.Grounding.From, r.Grounding.To))
		}
	}

	for _, r := range batch.Results {
		if r.Status != Refuted {
			continue
		}
		msg := fmt.Sprintf("citation %q could not be verified", r.Citation.Raw)
		if r.Suggestion != "" {
			msg += fmt.Sprintf("; did you mean %q", r.Suggestion)
		}
		report.Recommendations = append(report.Recommendations, Recommendation{
			Severity: "critical",
			Message:  msg,
		})
	}

	if batch.Statistics.PartiallyVerified > 0 {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Severity: "warning",
			Message:  fmt.Sprintf("%d citation(s) only partially verified", batch.Statistics.PartiallyVerified),
		})
	}
	if batch.Statistics.Total == 0 {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Severity: "info",
			Message:  "no citations found; add file and line references to support claims",
		})
	}

	return report
}

// assessQuality maps a batch verification rate onto a quality tier. A
// document with no citations at all grades acceptable, not excellent.
func assessQuality(stats Statistics) Quality {
	if stats.Total == 0 {
		return QualityAcceptable
	}
	switch rate := stats.VerificationRate; {
	case rate >= 0.9:
		return QualityExcellent
	case rate >= 0.7:
		return QualityGood
	case rate >= 0.5:
		return QualityAcceptable
	case rate >= 0.3:
		return QualityPoor
	default:
		return QualityFailing
	}
}
