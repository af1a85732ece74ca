// Package citation extracts textual references (code locations, docs,
// URLs, issues, commits) from prose and verifies them against a
// repository.
package citation

import "time"

// Type classifies an extracted citation.
type Type string

const (
	CodeReference       Type = "code_reference"
	LineRange           Type = "line_range"
	IdentifierReference Type = "identifier_reference"
	Documentation       Type = "documentation"
	ExternalURL         Type = "external_url"
	IssueReference      Type = "issue_reference"
	CommitReference     Type = "commit_reference"
)

// Citation is one extracted reference with its source context.
type Citation struct {
	ID          string `json:"id"`
	Type        Type   `json:"type"`
	Raw         string `json:"raw"`
	File        string `json:"file,omitempty"`
	StartLine   int    `json:"startLine,omitempty"`
	EndLine     int    `json:"endLine,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	URL         string `json:"url,omitempty"`
	SHA         string `json:"commitSha,omitempty"`
	IssueNumber int    `json:"issueNumber,omitempty"`
	Repository  string `json:"repository,omitempty"`
	// Position is the character offset of the citation in the source text.
	Position int `json:"position"`
	// Claim is the sentence surrounding the citation.
	Claim string `json:"claim"`
}

// Status is the verification outcome for one citation.
type Status string

const (
	Verified          Status = "verified"
	PartiallyVerified Status = "partially_verified"
	Refuted           Status = "refuted"
	// Unverified marks citations whose shape gave the verifier nothing to
	// check against the repository.
	Unverified Status = "unverified"
)

// CheckOutcome is one named sub-check performed during verification.
// Confidence reflects how reliable the check itself is, not whether it
// passed.
type CheckOutcome struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Confidence float64 `json:"confidence"`
	Details    string  `json:"details,omitempty"`
}

// GroundingRelation links a verified citation to its evidence.
type GroundingRelation struct {
	// Type is "evidential" when the citation supports its claim and
	// "rebutting" when verification refuted it.
	Type     string  `json:"type"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Strength float64 `json:"strength"`
}

// VerificationResult is the outcome of verifying one citation.
type VerificationResult struct {
	Citation               Citation           `json:"citation"`
	Status                 Status             `json:"status"`
	Confidence             float64            `json:"confidence"`
	Checks                 []CheckOutcome     `json:"checks"`
	Grounding              *GroundingRelation `json:"grounding,omitempty"`
	Suggestion             string             `json:"suggestion,omitempty"`
	MatchedFact            string             `json:"matchedFact,omitempty"`
	VerifiedAt             time.Time          `json:"verifiedAt"`
	VerificationDurationMs int64              `json:"verificationDurationMs"`
}

// TypeStatistics counts outcomes for one citation type.
type TypeStatistics struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Refuted  int `json:"refuted"`
}

// Statistics aggregates a verification batch.
type Statistics struct {
	Total             int                     `json:"total"`
	Verified          int                     `json:"verified"`
	PartiallyVerified int                     `json:"partiallyVerified"`
	Refuted           int                     `json:"refuted"`
	Unverified        int                     `json:"unverified"`
	VerificationRate  float64                 `json:"verificationRate"`
	ByType            map[Type]TypeStatistics `json:"byType"`
}

// BatchResult is the outcome of verifying a batch of citations.
type BatchResult struct {
	Results             []VerificationResult `json:"results"`
	Statistics          Statistics           `json:"statistics"`
	AggregateConfidence float64              `json:"aggregateConfidence"`
	CompletedAt         time.Time            `json:"completedAt"`
	TotalDurationMs     int64                `json:"totalDurationMs"`
}

// Quality grades a citation report.
type Quality string

const (
	QualityExcellent  Quality = "excellent"
	QualityGood       Quality = "good"
	QualityAcceptable Quality = "acceptable"
	QualityPoor       Quality = "poor"
	QualityFailing    Quality = "failing"
)

// Recommendation is one prioritized suggestion from a report.
type Recommendation struct {
	Severity string `json:"severity"` // "critical", "warning", "info"
	Message  string `json:"message"`
}

// Report synthesizes batch verification into a quality assessment.
type Report struct {
	Quality         Quality          `json:"quality"`
	Batch           BatchResult      `json:"batch"`
	GroundingChain  []string         `json:"groundingChain"`
	Recommendations []Recommendation `json:"recommendations"`
}
