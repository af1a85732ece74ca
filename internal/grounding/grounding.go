// Package grounding verifies whether claims are supported by arbitrary
// source text, independent of structured AST facts.
package grounding

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/blake2b"

	"librarian/internal/logging"
)

// Options configures the verifier.
type Options struct {
	// Threshold is the minimum score for a claim to count as grounded.
	Threshold float64
	// MaxChunkSize bounds per-chunk work, in runes.
	MaxChunkSize int
	// ChunkOverlap is how many runes adjacent chunks share.
	ChunkOverlap int
	// CacheTTL bounds how long verification results are reused.
	CacheTTL time.Duration
}

// DefaultOptions returns the standard verifier configuration.
func DefaultOptions() Options {
	return Options{
		Threshold:    0.55,
		MaxChunkSize: 2000,
		ChunkOverlap: 200,
		CacheTTL:     15 * time.Minute,
	}
}

// Check is one claim plus the sources it must be grounded in.
type Check struct {
	Claim           string   `json:"claim"`
	SourceDocuments []string `json:"sourceDocuments"`
	MaxTokens       int      `json:"maxTokens,omitempty"`
}

// Evidence is one supporting excerpt with its per-chunk scores.
// SourceIndex points into the check's SourceDocuments slice.
type Evidence struct {
	SourceIndex     int     `json:"sourceIndex"`
	Excerpt         string  `json:"excerpt"`
	RelevanceScore  float64 `json:"relevanceScore"`
	EntailmentScore float64 `json:"entailmentScore"`
}

// Result reports the grounding verdict for one claim.
type Result struct {
	Claim                 string     `json:"claim"`
	IsGrounded            bool       `json:"isGrounded"`
	Score                 float64    `json:"score"`
	SupportingEvidence    []Evidence `json:"supportingEvidence"`
	ContradictingEvidence []string   `json:"contradictingEvidence"`
	Explanation           string     `json:"explanation"`
}

// BatchResult aggregates a batch of grounding checks.
type BatchResult struct {
	Claims               []Result `json:"claims"`
	OverallGroundingRate float64  `json:"overallGroundingRate"`
	ProcessingTimeMs     int64    `json:"processingTimeMs"`
	TokensProcessed      int      `json:"tokensProcessed"`
}

// Metrics accumulates verifier activity for one instance.
type Metrics struct {
	TotalChecks     int   `json:"totalChecks"`
	GroundedCount   int   `json:"groundedCount"`
	CacheHits       int   `json:"cacheHits"`
	TokensProcessed int   `json:"tokensProcessed"`
	TotalTimeMs     int64 `json:"totalTimeMs"`
}

// Verifier checks claims against source documents.
type Verifier struct {
	opts   Options
	cache  *gocache.Cache
	logger *logging.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewVerifier creates a grounding verifier.
func NewVerifier(opts Options, logger *logging.Logger) *Verifier {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultOptions().MaxChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.MaxChunkSize {
		opts.ChunkOverlap = DefaultOptions().ChunkOverlap
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultOptions().CacheTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Verifier{
		opts:   opts,
		cache:  gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger: logger,
	}
}

// contradictionPattern pairs a claim pattern with an evidence pattern
// that, when both match with conflicting captures, refutes the claim.
type contradictionPattern struct {
	claim    *regexp.Regexp
	evidence *regexp.Regexp
	// sameCapture true means a contradiction needs differing captures;
	// false means the evidence pattern alone contradicts the claim.
	sameCapture bool
}

var contradictionPatterns = []contradictionPattern{
	{
		// evidence must state a type: prose "returns a X" or a declared
		// annotation "): X". A bare "return expr;" statement names no type.
		claim:       regexp.MustCompile(`(?i)returns? (?:an? |the )?([\w\[\]<>]+)`),
		evidence:    regexp.MustCompile(`(?i)returns (?:an? |the )?([\w\[\]<>]+)|\)\s*:\s*([\w\[\]<>]+)`),
		sameCapture: true,
	},
	{
		claim:       regexp.MustCompile(`(?i)extends ([\w]+)`),
		evidence:    regexp.MustCompile(`(?i)extends ([\w]+)`),
		sameCapture: true,
	},
	{
		claim:    regexp.MustCompile(`(?i)takes no parameters|has no parameters`),
		evidence: regexp.MustCompile(`(?i)(?:takes|accepts|has) (?:\d+|one|two|three|several) parameters?|\(\s*\w+\s*[:,]`),
	},
	{
		claim:    regexp.MustCompile(`(?i)is a singleton`),
		evidence: regexp.MustCompile(`(?i)public constructor`),
	},
}

// structural keywords whose co-occurrence hints the chunk discusses the
// same kind of property as the claim.
var structuralKeywords = []string{
	"returns", "parameter", "extends", "implements", "imports", "exports",
	"async", "class", "function", "method", "interface", "constructor",
}

// VerifyClaim checks one claim against its source documents. Empty
// claims or source sets come back ungrounded with zero confidence.
func (v *Verifier) VerifyClaim(ctx context.Context, check Check) Result {
	start := time.Now()

	claim := strings.TrimSpace(check.Claim)
	if claim == "" {
		return v.finish(start, 0, Result{
			Claim:                 check.Claim,
			SupportingEvidence:    []Evidence{},
			ContradictingEvidence: []string{},
			Explanation:           "empty claim cannot be grounded",
		})
	}
	if !hasContent(check.SourceDocuments) {
		return v.finish(start, 0, Result{
			Claim:                 claim,
			SupportingEvidence:    []Evidence{},
			ContradictingEvidence: []string{},
			Explanation:           "no source documents provided",
		})
	}

	key := cacheKey(claim, check.SourceDocuments)
	if cached, ok := v.cache.Get(key); ok {
		v.mu.Lock()
		v.metrics.CacheHits++
		v.mu.Unlock()
		return cached.(Result)
	}

	claimTerms := extractIdentifiers(claim)

	var supporting []Evidence
	var contradicting []string
	tokens := 0

	for docIdx, doc := range check.SourceDocuments {
		for _, chunk := range chunkText(doc, v.opts.MaxChunkSize, v.opts.ChunkOverlap) {
			tokens += len(strings.Fields(chunk))

			if isContradiction(claim, chunk) {
				contradicting = append(contradicting, snippet(chunk))
				continue
			}

			relevance := termOverlap(claimTerms, chunk)
			if relevance == 0 {
				continue
			}
			ent := entailmentScore(claim, claimTerms, chunk, relevance)
			if ent > 0.2 {
				supporting = append(supporting, Evidence{
					SourceIndex:     docIdx,
					Excerpt:         snippet(chunk),
					RelevanceScore:  relevance,
					EntailmentScore: ent,
				})
			}
		}
	}

	score := combineScores(supporting, contradicting, claimTerms, check.SourceDocuments)
	grounded := score >= v.opts.Threshold && len(contradicting) == 0

	sort.SliceStable(supporting, func(i, j int) bool { return supporting[i].EntailmentScore > supporting[j].EntailmentScore })
	if supporting == nil {
		supporting = []Evidence{}
	}
	if contradicting == nil {
		contradicting = []string{}
	}

	result := Result{
		Claim:                 claim,
		IsGrounded:            grounded,
		Score:                 score,
		SupportingEvidence:    supporting,
		ContradictingEvidence: contradicting,
		Explanation:           explain(grounded, score, len(supporting), len(contradicting)),
	}

	v.cache.Set(key, result, gocache.DefaultExpiration)
	return v.finish(start, tokens, result)
}

// VerifyBatch verifies checks sequentially. Each check is independent;
// empty input returns zeroed metrics immediately.
func (v *Verifier) VerifyBatch(ctx context.Context, checks []Check) BatchResult {
	start := time.Now()
	batch := BatchResult{Claims: make([]Result, 0, len(checks))}
	if len(checks) == 0 {
		return batch
	}

	grounded := 0
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			break
		}
		result := v.VerifyClaim(ctx, check)
		batch.Claims = append(batch.Claims, result)
		if result.IsGrounded {
			grounded++
		}
		for _, doc := range check.SourceDocuments {
			batch.TokensProcessed += len(strings.Fields(doc))
		}
	}

	if len(batch.Claims) > 0 {
		batch.OverallGroundingRate = float64(grounded) / float64(len(batch.Claims))
	}
	batch.ProcessingTimeMs = time.Since(start).Milliseconds()
	return batch
}

// GetMetrics returns a snapshot of accumulated verifier metrics.
func (v *Verifier) GetMetrics() Metrics {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metrics
}

func (v *Verifier) finish(start time.Time, tokens int, result Result) Result {
	v.mu.Lock()
	v.metrics.TotalChecks++
	if result.IsGrounded {
		v.metrics.GroundedCount++
	}
	v.metrics.TokensProcessed += tokens
	v.metrics.TotalTimeMs += time.Since(start).Milliseconds()
	v.mu.Unlock()

	v.logger.Debug("grounding check", logging.Fields{
		"grounded": result.IsGrounded,
		"score":    result.Score,
	})
	return result
}

func combineScores(supporting []Evidence, contradicting []string, claimTerms []string, docs []string) float64 {
	if len(supporting) == 0 && len(contradicting) == 0 {
		return 0
	}

	maxEnt, maxRel, sum := 0.0, 0.0, 0.0
	for _, s := range supporting {
		if s.EntailmentScore > maxEnt {
			maxEnt = s.EntailmentScore
		}
		if s.RelevanceScore > maxRel {
			maxRel = s.RelevanceScore
		}
		sum += s.EntailmentScore
	}
	avg := 0.0
	if len(supporting) > 0 {
		avg = sum / float64(len(supporting))
	}

	score := 0.5*maxEnt + 0.3*maxRel + 0.2*avg

	// independent corroboration boosts
	if len(supporting) >= 3 {
		score += 0.1
	} else if len(supporting) >= 2 {
		score += 0.05
	}

	// named entity absent from every source
	if entity := namedEntity(claimTerms); entity != "" && !mentionedAnywhere(entity, docs) {
		score -= 0.2
	}

	score -= 0.4 * float64(len(contradicting))

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func explain(grounded bool, score float64, supporting, contradicting int) string {
	switch {
	case contradicting > 0:
		return fmt.Sprintf("found %d contradicting evidence piece(s); score %.2f", contradicting, score)
	case grounded:
		return fmt.Sprintf("claim supported by %d evidence piece(s); score %.2f", supporting, score)
	case supporting == 0:
		return "no supporting evidence found in sources"
	default:
		return fmt.Sprintf("evidence too weak; score %.2f below threshold", score)
	}
}

func isContradiction(claim, chunk string) bool {
	for _, p := range contradictionPatterns {
		cm := p.claim.FindStringSubmatch(claim)
		if cm == nil {
			continue
		}
		em := p.evidence.FindStringSubmatch(chunk)
		if em == nil {
			continue
		}
		if !p.sameCapture {
			return true
		}
		claimed, stated := firstCapture(cm), firstCapture(em)
		if claimed != "" && stated != "" && !strings.EqualFold(claimed, stated) {
			// only a contradiction when both statements talk about the
			// same entity
			if entity := subjectBefore(claim, cm[0]); entity != "" && strings.Contains(strings.ToLower(chunk), strings.ToLower(entity)) {
				return true
			}
		}
	}
	return false
}

// firstCapture returns the first non-empty capture group of a submatch.
func firstCapture(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// subjectBefore returns the identifier immediately preceding the matched
// assertion in the claim.
func subjectBefore(claim, matched string) string {
	idx := strings.Index(claim, matched)
	if idx <= 0 {
		return ""
	}
	fields := strings.Fields(claim[:idx])
	for i := len(fields) - 1; i >= 0; i-- {
		word := strings.Trim(fields[i], "`.,")
		if word != "" && !groundingStopWords[strings.ToLower(word)] {
			return word
		}
	}
	return ""
}

func entailmentScore(claim string, claimTerms []string, chunk string, relevance float64) float64 {
	score := 0.4 * relevance

	// relationship pattern bonus when claim and chunk assert the same
	// relation about the same subject
	for _, rel := range []string{"extends", "implements", "returns", "async", "imports", "calls"} {
		if strings.Contains(strings.ToLower(claim), rel) && strings.Contains(strings.ToLower(chunk), rel) {
			score += 0.15
			break
		}
	}

	score += 0.3 * jaccard(claim, chunk)

	// structural keyword co-occurrence
	shared := 0
	lower := strings.ToLower(chunk)
	lowerClaim := strings.ToLower(claim)
	for _, kw := range structuralKeywords {
		if strings.Contains(lower, kw) && strings.Contains(lowerClaim, kw) {
			shared++
		}
	}
	if shared >= 2 {
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

func termOverlap(claimTerms []string, chunk string) float64 {
	if len(claimTerms) == 0 {
		return 0
	}
	lower := strings.ToLower(chunk)
	hits := 0
	for _, term := range claimTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			hits++
		}
	}
	return float64(hits) / float64(len(claimTerms))
}

func jaccard(a, b string) float64 {
	sa := wordSet(a)
	sb := wordSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	overlap := 0
	for w := range sa {
		if sb[w] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(sa)+len(sb)-overlap)
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, "`.,;:()[]{}\"'")
		if len(w) > 2 && !groundingStopWords[w] {
			out[w] = true
		}
	}
	return out
}

var backtickPattern = regexp.MustCompile("`([^`]+)`")
var camelPattern = regexp.MustCompile(`\b[a-z]+[A-Z]\w*\b|\b[A-Z][a-z]+[A-Z]\w*\b`)
var snakePattern = regexp.MustCompile(`\b\w+_\w+\b`)

// extractIdentifiers pulls code-like terms out of a claim: backticked
// names, CamelCase, snake_case, plus remaining significant words.
func extractIdentifiers(claim string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		lower := strings.ToLower(term)
		if term == "" || seen[lower] || groundingStopWords[lower] {
			return
		}
		seen[lower] = true
		out = append(out, term)
	}

	for _, m := range backtickPattern.FindAllStringSubmatch(claim, -1) {
		add(m[1])
	}
	for _, m := range camelPattern.FindAllString(claim, -1) {
		add(m)
	}
	for _, m := range snakePattern.FindAllString(claim, -1) {
		add(m)
	}
	for _, w := range strings.Fields(claim) {
		w = strings.Trim(w, "`.,;:()[]{}\"'")
		if len(w) > 3 {
			add(w)
		}
	}
	return out
}

// namedEntity returns the most code-like term in the claim, if any.
func namedEntity(terms []string) string {
	for _, t := range terms {
		if camelPattern.MatchString(t) || snakePattern.MatchString(t) || strings.Contains(t, ".") {
			return t
		}
	}
	return ""
}

func mentionedAnywhere(entity string, docs []string) bool {
	lower := strings.ToLower(entity)
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc), lower) {
			return true
		}
	}
	return false
}

// chunkText splits text into at-most-size rune chunks with overlap.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func snippet(chunk string) string {
	const max = 200
	chunk = strings.TrimSpace(chunk)
	runes := []rune(chunk)
	if len(runes) <= max {
		return chunk
	}
	return string(runes[:max]) + "..."
}

func hasContent(docs []string) bool {
	for _, d := range docs {
		if strings.TrimSpace(d) != "" {
			return true
		}
	}
	return false
}

func cacheKey(claim string, docs []string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(claim))
	for _, d := range docs {
		h.Write([]byte{0})
		h.Write([]byte(d))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

var groundingStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "this": true, "that": true, "with": true, "from": true,
	"function": true, "method": true, "class": true, "which": true,
	"have": true, "has": true, "does": true, "will": true, "when": true,
	"then": true, "than": true, "them": true, "they": true, "there": true,
	"returns": true, "return": true, "takes": true, "into": true, "onto": true,
}
