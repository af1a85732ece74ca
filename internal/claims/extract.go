package claims

import (
	"regexp"
	"sort"
	"strings"
)

// claimPattern pairs a surface pattern with the claim type it produces.
type claimPattern struct {
	re        *regexp.Regexp
	claimType ClaimType
}

// ident matches a backtick-quoted or bare code identifier.
const ident = "`?([A-Za-z_$][\\w$.]*)`?"

var claimPatterns = []claimPattern{
	// factual: properties directly checkable against a single fact
	{regexp.MustCompile("(?i)" + ident + "(?: in `?\\S+`?)?" + ` returns? (?:an? |the )?([\w\[\]<>.]+)`), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` (?:takes|accepts) (?:an? |the )?([\w\[\]<>., ]+?) (?:as )?(?:parameters?|arguments?)`), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` has (\d+|no|one|two|three|four) parameters?`), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` is (?:an )?async(?:hronous)?`), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` is defined in ` + ident), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` is deprecated`), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` is (?:private|static|generic)`), ClaimFactual},
	{regexp.MustCompile("(?i)" + ident + ` has (?:a |the )?property ` + ident), ClaimFactual},

	// structural: shape of the code
	{regexp.MustCompile("(?i)" + ident + ` (?:extends|inherits from) ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` implements ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` imports ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` exports ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` contains ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` depends on ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` overrides ` + ident), ClaimStructural},
	{regexp.MustCompile("(?i)" + ident + ` decorates ` + ident), ClaimStructural},

	// behavioral: what the code does at runtime
	{regexp.MustCompile("(?i)" + ident + ` calls ` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` is called by ` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` uses ` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` provides ` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` handles ([\w ]+?)(?:\.|,|$)`), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` triggers ` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` validates ([\w ]+?)(?:\.|,|$)`), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` throws (?:an? )?` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` emits ` + ident), ClaimBehavioral},
	{regexp.MustCompile("(?i)" + ident + ` listens for ` + ident), ClaimBehavioral},
}

// ExtractClaims runs the surface-pattern table over text and returns all
// matches in source position order. Text matching nothing yields an
// empty list.
func ExtractClaims(text string) []Claim {
	type positioned struct {
		start int
		claim Claim
	}

	var found []positioned
	seen := make(map[string]bool)
	for _, p := range claimPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			matched := strings.TrimSpace(text[loc[0]:loc[1]])
			key := strings.ToLower(matched)
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, positioned{
				start: loc[0],
				claim: Claim{Text: matched, Type: p.claimType},
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	out := make([]Claim, 0, len(found))
	for _, f := range found {
		out = append(out, f.claim)
	}
	return out
}
