package claims

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxAtomicLength is the rune threshold beyond which a claim is treated
// as presumptively compound.
const maxAtomicLength = 160

// connectives that mark a compound claim, longest first so multi-word
// connectives win over their substrings.
var connectives = []string{
	"as well as",
	"which causes",
	"so that",
	"because",
	"therefore",
	"since",
	"but",
	"also",
	"and",
}

// compound-noun idioms that must never be split on their "and".
var idioms = []string{
	"input and output",
	"read and write",
	"reads and writes",
	"key and value",
	"keys and values",
	"request and response",
	"client and server",
	"trial and error",
	"back and forth",
	"drag and drop",
	"copy and paste",
	"try and catch",
	"pros and cons",
}

var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

var (
	proceduralPattern   = regexp.MustCompile(`(?i)\b(first|then|next|after that|afterwards|finally|step \d+|subsequently)\b`)
	definitionalPattern = regexp.MustCompile(`(?i)\b\w+ is (a|an|the) \w+`)
	evaluativePattern   = regexp.MustCompile(`(?i)\b(good|bad|better|best|worst|poor|excellent|elegant|clean|ugly|well[- ]designed|well[- ]written|readable|maintainable|should|could be improved|nice|great)\b`)
)

// Decomposer splits free text into atomic claims.
type Decomposer struct{}

// NewDecomposer creates a claim decomposer.
func NewDecomposer() *Decomposer {
	return &Decomposer{}
}

// IsAtomic reports whether text contains exactly one verifiable
// assertion: non-empty, under the length threshold, and free of
// un-idiomatic conjunctions or causal connectives.
func IsAtomic(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if utf8.RuneCountInString(trimmed) > maxAtomicLength {
		return false
	}
	idx, _ := findConnective(trimmed)
	return idx < 0
}

// Decompose splits text into sentences, then recursively splits compound
// sentences on conjunctions and causal connectives. Children split from
// a compound sentence link back to it via ParentClaimID; only atomic
// pieces are returned.
func (d *Decomposer) Decompose(text string) []AtomicClaim {
	var out []AtomicClaim
	for _, span := range splitSentences(text) {
		content := strings.TrimSpace(text[span.Start:span.End])
		if content == "" {
			continue
		}

		parts := splitCompound(content)
		if len(parts) <= 1 {
			out = append(out, AtomicClaim{
				ID:         uuid.NewString(),
				Content:    strings.TrimSuffix(content, "."),
				Type:       classify(content),
				Confidence: 0.9,
				SourceSpan: span,
			})
			continue
		}

		parentID := uuid.NewString()
		for _, part := range parts {
			part = strings.TrimSuffix(strings.TrimSpace(part), ".")
			if part == "" {
				continue
			}
			offset := strings.Index(content, part)
			childSpan := span
			if offset >= 0 {
				childSpan = SourceSpan{
					Start: span.Start + offset,
					End:   span.Start + offset + len(part),
				}
			}
			out = append(out, AtomicClaim{
				ID:            uuid.NewString(),
				Content:       part,
				Type:          classify(part),
				Confidence:    0.75,
				SourceSpan:    childSpan,
				ParentClaimID: parentID,
			})
		}
	}
	if out == nil {
		out = []AtomicClaim{}
	}
	return out
}

// DecomposeCodeResponse extracts claims from an explanation anchored to
// a code sample, then adds claims for "function does / returns / takes"
// statements the generic pass can miss.
func (d *Decomposer) DecomposeCodeResponse(code, explanation string) []AtomicClaim {
	out := d.Decompose(explanation)

	anchored := regexp.MustCompile("(?i)(?:the )?(?:function|method) `?([A-Za-z_$][\\w$]*)`? (does|returns|takes) ([^,.]+)")
	for _, m := range anchored.FindAllStringSubmatchIndex(explanation, -1) {
		content := strings.TrimSpace(explanation[m[0]:m[1]])
		dup := false
		for _, c := range out {
			if strings.Contains(c.Content, content) || strings.Contains(content, c.Content) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, AtomicClaim{
			ID:         uuid.NewString(),
			Content:    content,
			Type:       AtomicFactual,
			Confidence: 0.8,
			SourceSpan: SourceSpan{Start: m[0], End: m[1]},
		})
	}
	return out
}

func splitSentences(text string) []SourceSpan {
	var spans []SourceSpan
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		spans = append(spans, SourceSpan{Start: start, End: loc[1]})
		start = loc[1]
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		spans = append(spans, SourceSpan{Start: start, End: len(text)})
	}
	return spans
}

// splitCompound recursively splits on the first un-idiomatic connective.
func splitCompound(text string) []string {
	idx, length := findConnective(text)
	if idx < 0 {
		return []string{text}
	}

	left := strings.TrimRight(strings.TrimSpace(text[:idx]), ",")
	right := strings.TrimSpace(text[idx+length:])

	var parts []string
	for _, half := range []string{left, right} {
		if half == "" {
			continue
		}
		parts = append(parts, splitCompound(half)...)
	}
	return parts
}

// findConnective returns the byte offset and length of the first
// splittable connective, or -1 when the text is atomic.
func findConnective(text string) (int, int) {
	lower := strings.ToLower(text)

	best := -1
	bestLen := 0
	for _, conn := range connectives {
		search := 0
		for {
			rel := strings.Index(lower[search:], conn)
			if rel < 0 {
				break
			}
			idx := search + rel
			search = idx + len(conn)

			if !wordBoundary(lower, idx, len(conn)) {
				continue
			}
			if conn == "and" && insideIdiom(lower, idx) {
				continue
			}
			if best < 0 || idx < best {
				best = idx
				bestLen = len(conn)
			}
			break
		}
	}
	return best, bestLen
}

func wordBoundary(text string, idx, length int) bool {
	if idx > 0 && isWordChar(text[idx-1]) {
		return false
	}
	end := idx + length
	if end < len(text) && isWordChar(text[end]) {
		return false
	}
	// a connective at the very start or end splits nothing
	return idx > 0 && end < len(text)
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func insideIdiom(lower string, andIdx int) bool {
	for _, idiom := range idioms {
		pos := strings.Index(idiom, " and ")
		if pos < 0 {
			continue
		}
		start := andIdx - pos - 1
		if start < 0 {
			continue
		}
		if strings.HasPrefix(lower[start:], idiom) {
			return true
		}
	}
	return false
}

func classify(text string) AtomicClaimType {
	switch {
	case proceduralPattern.MatchString(text):
		return AtomicProcedural
	case definitionalPattern.MatchString(text):
		return AtomicDefinitional
	case evaluativePattern.MatchString(text):
		return AtomicEvaluative
	default:
		return AtomicFactual
	}
}
