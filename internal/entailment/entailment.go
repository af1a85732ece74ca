// Package entailment checks natural-language claims against structured
// AST facts and reports whether each claim is supported, contradicted,
// or undetermined.
package entailment

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"librarian/internal/claims"
	"librarian/internal/facts"
	"librarian/internal/logging"
)

// Verdict is the outcome of checking one claim.
type Verdict string

const (
	Entailed     Verdict = "entailed"
	Contradicted Verdict = "contradicted"
	Neutral      Verdict = "neutral"
)

// Evidence is one piece of support or refutation for a claim.
type Evidence struct {
	Type     string `json:"type"` // "fact", "context", "comment"
	Content  string `json:"content"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Supports bool   `json:"supports"`
}

// Result is the outcome of entailment checking one claim.
type Result struct {
	Claim       claims.Claim `json:"claim"`
	Verdict     Verdict      `json:"verdict"`
	Confidence  float64      `json:"confidence"`
	Evidence    []Evidence   `json:"evidence"`
	Explanation string       `json:"explanation"`
}

// ResponseSummary aggregates entailment results for a whole response.
type ResponseSummary struct {
	Results        []Result `json:"results"`
	Entailed       int      `json:"entailed"`
	Contradicted   int      `json:"contradicted"`
	Neutral        int      `json:"neutral"`
	EntailmentRate float64  `json:"entailmentRate"`
}

// Checker verifies claims against extracted facts.
type Checker struct {
	extractor *facts.Extractor
	logger    *logging.Logger
}

// NewChecker creates an entailment checker.
func NewChecker(logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Checker{extractor: facts.NewExtractor(), logger: logger}
}

// assertion patterns, tried in order.
var (
	returnsPattern    = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`?(?: function| method)?(?: in `?\\S+`?)? returns? (?:an? |the )?`?([\\w\\[\\]<>.]+)`?")
	paramCountPattern = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? (?:has|takes) (\\d+|no|one|two|three|four|five) parameters?")
	asyncPattern      = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? is (?:an )?async")
	extendsPattern    = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? (?:extends|inherits from) `?([A-Za-z_$][\\w$]*)`?")
	implementsPattern = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? implements `?([A-Za-z_$][\\w$]*)`?")
	importsPattern    = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? imports `?([\\w./@-]+)`?")
	callsPattern      = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? calls `?([A-Za-z_$][\\w$]*)`?")
	definedInPattern  = regexp.MustCompile("(?i)`?([A-Za-z_$][\\w$]*)`? is defined in `?([\\w./-]+)`?")
)

var numberWords = map[string]int{
	"no": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
}

// CheckEntailment checks one claim against the given facts. Claims whose
// entity is unknown, or that assert nothing checkable, come back neutral.
func (c *Checker) CheckEntailment(claim claims.Claim, astFacts []facts.ASTFact, contextText string) Result {
	result := Result{Claim: claim, Evidence: []Evidence{}}
	text := claim.Text

	if m := returnsPattern.FindStringSubmatch(text); m != nil {
		return c.checkReturns(result, m[1], m[2], astFacts)
	}
	if m := paramCountPattern.FindStringSubmatch(text); m != nil {
		return c.checkParamCount(result, m[1], m[2], astFacts)
	}
	if m := asyncPattern.FindStringSubmatch(text); m != nil {
		return c.checkAsync(result, m[1], astFacts)
	}
	if m := extendsPattern.FindStringSubmatch(text); m != nil {
		return c.checkRelation(result, m[1], m[2], astFacts, "extends")
	}
	if m := implementsPattern.FindStringSubmatch(text); m != nil {
		return c.checkRelation(result, m[1], m[2], astFacts, "implements")
	}
	if m := importsPattern.FindStringSubmatch(text); m != nil {
		return c.checkImports(result, m[1], m[2], astFacts)
	}
	if m := callsPattern.FindStringSubmatch(text); m != nil {
		return c.checkCalls(result, m[1], m[2], astFacts)
	}
	if m := definedInPattern.FindStringSubmatch(text); m != nil {
		return c.checkDefinedIn(result, m[1], m[2], astFacts)
	}

	result.Verdict = Neutral
	result.Confidence = 0.4
	result.Explanation = "claim asserts no checkable structural property"
	_ = contextText
	return result
}

func (c *Checker) checkReturns(result Result, entity, wantType string, astFacts []facts.ASTFact) Result {
	fact, ok := findFunction(entity, astFacts)
	if !ok {
		return notFound(result, entity)
	}
	if fact.Details.ReturnType == "" {
		result.Verdict = Neutral
		result.Confidence = 0.4
		result.Explanation = fmt.Sprintf("no return type recorded for %s", entity)
		return result
	}

	ev := factEvidence(fact, fmt.Sprintf("%s returns %s", fact.Identifier, fact.Details.ReturnType))
	if typesMatch(fact.Details.ReturnType, wantType) {
		ev.Supports = true
		result.Evidence = append(result.Evidence, ev)
		result.Verdict = Entailed
		result.Confidence = 0.95
		result.Explanation = fmt.Sprintf("%s returns %s, matching the claim", entity, fact.Details.ReturnType)
		return result
	}

	ev.Supports = false
	result.Evidence = append(result.Evidence, ev)
	result.Verdict = Contradicted
	result.Confidence = 0.85
	result.Explanation = fmt.Sprintf("%s returns %s, not %s", entity, fact.Details.ReturnType, wantType)
	return result
}

func (c *Checker) checkParamCount(result Result, entity, countText string, astFacts []facts.ASTFact) Result {
	fact, ok := findFunction(entity, astFacts)
	if !ok {
		return notFound(result, entity)
	}

	want, ok := numberWords[strings.ToLower(countText)]
	if !ok {
		n, err := strconv.Atoi(countText)
		if err != nil {
			result.Verdict = Neutral
			result.Confidence = 0.3
			result.Explanation = "unparseable parameter count"
			return result
		}
		want = n
	}

	got := len(fact.Details.Parameters)
	ev := factEvidence(fact, fmt.Sprintf("%s has %d parameters", fact.Identifier, got))
	if got == want {
		ev.Supports = true
		result.Evidence = append(result.Evidence, ev)
		result.Verdict = Entailed
		result.Confidence = 0.95
		result.Explanation = fmt.Sprintf("%s has exactly %d parameters", entity, got)
		return result
	}

	ev.Supports = false
	result.Evidence = append(result.Evidence, ev)
	result.Verdict = Contradicted
	result.Confidence = 0.85
	result.Explanation = fmt.Sprintf("%s has %d parameters, not %d", entity, got, want)
	return result
}

func (c *Checker) checkAsync(result Result, entity string, astFacts []facts.ASTFact) Result {
	fact, ok := findFunction(entity, astFacts)
	if !ok {
		return notFound(result, entity)
	}

	ev := factEvidence(fact, fmt.Sprintf("%s async=%v", fact.Identifier, fact.Details.Async))
	if fact.Details.Async {
		ev.Supports = true
		result.Evidence = append(result.Evidence, ev)
		result.Verdict = Entailed
		result.Confidence = 0.9
		result.Explanation = fmt.Sprintf("%s is declared async", entity)
		return result
	}

	ev.Supports = false
	result.Evidence = append(result.Evidence, ev)
	result.Verdict = Contradicted
	result.Confidence = 0.8
	result.Explanation = fmt.Sprintf("%s is not declared async", entity)
	return result
}

func (c *Checker) checkRelation(result Result, entity, target string, astFacts []facts.ASTFact, relation string) Result {
	fact, ok := findByType(entity, facts.FactClass, astFacts)
	if !ok {
		return notFound(result, entity)
	}

	var got []string
	if relation == "extends" {
		if fact.Details.Extends != "" {
			got = []string{fact.Details.Extends}
		}
	} else {
		got = fact.Details.Implements
	}

	for _, g := range got {
		if strings.EqualFold(g, target) {
			ev := factEvidence(fact, fmt.Sprintf("%s %s %s", entity, relation, g))
			ev.Supports = true
			result.Evidence = append(result.Evidence, ev)
			result.Verdict = Entailed
			result.Confidence = 0.95
			result.Explanation = fmt.Sprintf("%s %s %s", entity, relation, target)
			return result
		}
	}

	if len(got) == 0 {
		result.Verdict = Neutral
		result.Confidence = 0.4
		result.Explanation = fmt.Sprintf("no %s relationship recorded for %s", relation, entity)
		return result
	}

	ev := factEvidence(fact, fmt.Sprintf("%s %s %s", entity, relation, strings.Join(got, ", ")))
	result.Evidence = append(result.Evidence, ev)
	result.Verdict = Contradicted
	result.Confidence = 0.8
	result.Explanation = fmt.Sprintf("%s %s %s, not %s", entity, relation, strings.Join(got, ", "), target)
	return result
}

func (c *Checker) checkImports(result Result, entity, module string, astFacts []facts.ASTFact) Result {
	for _, f := range astFacts {
		if f.Type != facts.FactImport {
			continue
		}
		if strings.Contains(strings.ToLower(f.Details.Source), strings.ToLower(module)) {
			ev := factEvidence(f, fmt.Sprintf("import of %s", f.Details.Source))
			ev.Supports = true
			result.Evidence = append(result.Evidence, ev)
			result.Verdict = Entailed
			result.Confidence = 0.85
			result.Explanation = fmt.Sprintf("found import of %s", f.Details.Source)
			return result
		}
	}
	result.Verdict = Neutral
	result.Confidence = 0.4
	result.Explanation = fmt.Sprintf("no import of %s found", module)
	return result
}

func (c *Checker) checkCalls(result Result, caller, callee string, astFacts []facts.ASTFact) Result {
	for _, f := range astFacts {
		if f.Type != facts.FactCall {
			continue
		}
		if strings.EqualFold(f.Details.Callee, callee) &&
			(caller == "" || strings.EqualFold(f.Details.Caller, caller)) {
			ev := factEvidence(f, fmt.Sprintf("%s calls %s", f.Details.Caller, f.Details.Callee))
			ev.Supports = true
			result.Evidence = append(result.Evidence, ev)
			result.Verdict = Entailed
			result.Confidence = 0.9
			result.Explanation = fmt.Sprintf("call from %s to %s found", f.Details.Caller, f.Details.Callee)
			return result
		}
	}
	result.Verdict = Neutral
	result.Confidence = 0.4
	result.Explanation = fmt.Sprintf("no call from %s to %s found", caller, callee)
	return result
}

func (c *Checker) checkDefinedIn(result Result, entity, file string, astFacts []facts.ASTFact) Result {
	for _, f := range astFacts {
		if !strings.EqualFold(f.Identifier, entity) {
			continue
		}
		if f.Type != facts.FactFunctionDef && f.Type != facts.FactClass && f.Type != facts.FactType_ {
			continue
		}
		ev := factEvidence(f, fmt.Sprintf("%s defined in %s:%d", f.Identifier, f.File, f.Line))
		if strings.HasSuffix(f.File, file) || strings.HasSuffix(file, f.File) {
			ev.Supports = true
			result.Evidence = append(result.Evidence, ev)
			result.Verdict = Entailed
			result.Confidence = 0.95
			result.Explanation = fmt.Sprintf("%s is defined in %s", entity, f.File)
			return result
		}
		ev.Supports = false
		result.Evidence = append(result.Evidence, ev)
		result.Verdict = Contradicted
		result.Confidence = 0.8
		result.Explanation = fmt.Sprintf("%s is defined in %s, not %s", entity, f.File, file)
		return result
	}
	return notFound(result, entity)
}

// FindEvidence surfaces every fact and context line touching the claim's
// entities, marking each piece as supporting or contradicting.
func (c *Checker) FindEvidence(claim claims.Claim, astFacts []facts.ASTFact, contextText string) []Evidence {
	entities := extractEntities(claim.Text)
	var out []Evidence

	checked := c.CheckEntailment(claim, astFacts, contextText)
	out = append(out, checked.Evidence...)

	for _, f := range astFacts {
		if !containsEntity(entities, f.Identifier) {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing.File == f.File && existing.Line == f.Line {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, Evidence{
			Type:     "fact",
			Content:  fmt.Sprintf("%s %s at %s:%d", f.Type, f.Identifier, f.File, f.Line),
			File:     f.File,
			Line:     f.Line,
			Supports: checked.Verdict != Contradicted,
		})
	}

	if contextText != "" {
		for i, line := range strings.Split(contextText, "\n") {
			for _, e := range entities {
				if strings.Contains(line, e) {
					out = append(out, Evidence{
						Type:     "context",
						Content:  strings.TrimSpace(line),
						Line:     i + 1,
						Supports: true,
					})
					break
				}
			}
		}
	}
	return out
}

// CheckResponse extracts claims from a response, extracts facts for the
// repo, and checks every claim in order. A bad repo path degrades to
// neutral results rather than failing.
func (c *Checker) CheckResponse(ctx context.Context, text, repoPath string) ResponseSummary {
	extracted := claims.ExtractClaims(text)
	astFacts := c.extractor.ExtractDirectory(ctx, repoPath)

	summary := ResponseSummary{Results: make([]Result, 0, len(extracted))}
	for _, claim := range extracted {
		result := c.CheckEntailment(claim, astFacts, "")
		summary.Results = append(summary.Results, result)
		switch result.Verdict {
		case Entailed:
			summary.Entailed++
		case Contradicted:
			summary.Contradicted++
		default:
			summary.Neutral++
		}
	}

	total := summary.Entailed + summary.Contradicted + summary.Neutral
	if total > 0 {
		summary.EntailmentRate = float64(summary.Entailed) / float64(total)
	}

	c.logger.Debug("checked response", logging.Fields{
		"claims":       total,
		"entailed":     summary.Entailed,
		"contradicted": summary.Contradicted,
	})
	return summary
}

// --- helpers ---

func factEvidence(f facts.ASTFact, content string) Evidence {
	return Evidence{Type: "fact", Content: content, File: f.File, Line: f.Line}
}

func notFound(result Result, entity string) Result {
	result.Verdict = Neutral
	result.Confidence = 0.3
	result.Explanation = fmt.Sprintf("entity %s not found in extracted facts", entity)
	return result
}

func findFunction(entity string, astFacts []facts.ASTFact) (facts.ASTFact, bool) {
	return findByType(entity, facts.FactFunctionDef, astFacts)
}

func findByType(entity string, factType facts.FactType, astFacts []facts.ASTFact) (facts.ASTFact, bool) {
	for _, f := range astFacts {
		if f.Type == factType && strings.EqualFold(f.Identifier, entity) {
			return f, true
		}
	}
	return facts.ASTFact{}, false
}

func typesMatch(got, want string) bool {
	g := normalizeType(got)
	w := normalizeType(want)
	return g == w || strings.Contains(g, w) || strings.Contains(w, g)
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, article := range []string{"a ", "an ", "the "} {
		t = strings.TrimPrefix(t, article)
	}
	return t
}

var entityPattern = regexp.MustCompile("`([^`]+)`|\\b([A-Za-z_$][\\w$]*)\\b")

func extractEntities(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range entityPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		lower := strings.ToLower(name)
		if seen[lower] || stopWords[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, name)
	}
	return out
}

func containsEntity(entities []string, identifier string) bool {
	for _, e := range entities {
		if strings.EqualFold(e, identifier) {
			return true
		}
	}
	return false
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"function": true, "method": true, "class": true, "returns": true, "return": true,
	"takes": true, "accepts": true, "has": true, "have": true, "and": true,
	"or": true, "not": true, "in": true, "of": true, "to": true, "it": true,
	"this": true, "that": true, "calls": true, "extends": true, "implements": true,
	"imports": true, "exports": true, "from": true, "with": true, "defined": true,
	"string": true, "number": true, "boolean": true, "void": true, "async": true,
	"parameters": true, "parameter": true, "arguments": true, "argument": true,
}
