// Package claims extracts and decomposes natural-language claims about
// code so downstream checkers can verify each assertion independently.
package claims

// ClaimType classifies a pattern-extracted claim.
type ClaimType string

const (
	// ClaimStructural asserts code structure (types, inheritance, defs)
	ClaimStructural ClaimType = "structural"
	// ClaimBehavioral asserts runtime behavior (calls, handling, emits)
	ClaimBehavioral ClaimType = "behavioral"
	// ClaimFactual asserts a checkable property (returns, parameters)
	ClaimFactual ClaimType = "factual"
)

// Claim is a single extracted assertion about code.
type Claim struct {
	Text   string    `json:"text"`
	Type   ClaimType `json:"type"`
	Source string    `json:"source,omitempty"`
}

// AtomicClaimType classifies a decomposed claim by surface pattern.
type AtomicClaimType string

const (
	AtomicFactual      AtomicClaimType = "factual"
	AtomicProcedural   AtomicClaimType = "procedural"
	AtomicEvaluative   AtomicClaimType = "evaluative"
	AtomicDefinitional AtomicClaimType = "definitional"
)

// SourceSpan locates a claim within its original text.
type SourceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// AtomicClaim is one indivisible assertion produced by decomposition.
// Children split from a compound sentence share a ParentClaimID; claims
// that were already atomic have none.
type AtomicClaim struct {
	ID            string          `json:"id"`
	Content       string          `json:"content"`
	Type          AtomicClaimType `json:"type"`
	Confidence    float64         `json:"confidence"`
	SourceSpan    SourceSpan      `json:"sourceSpan"`
	ParentClaimID string          `json:"parentClaimId,omitempty"`
}
