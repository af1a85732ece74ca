package citation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	githubLinePattern = regexp.MustCompile(`([\w./-]+\.[A-Za-z]{1,5})#L(\d+)(?:-L(\d+))?`)
	lineRangePattern  = regexp.MustCompile(`([\w./-]+\.[A-Za-z]{1,5}):(\d+)-(\d+)`)
	fileLinePattern   = regexp.MustCompile(`([\w./-]+\.[A-Za-z]{1,5}):(\d+)`)
	definedAtPattern  = regexp.MustCompile("`?([A-Za-z_$][\\w$]*)`? (?:is )?defined (?:at|on) line (\\d+) (?:of|in) `?([\\w./-]+)`?")
	identInPattern    = regexp.MustCompile("`([A-Za-z_$][\\w$]*)` in `?([\\w./-]+\\.[A-Za-z]{1,5})`?")
	urlPattern        = regexp.MustCompile(`https?://[^\s<>()\[\]{}"']+`)
	docPattern        = regexp.MustCompile(`\b(docs?/[\w./-]+|README(?:\.md)?|CHANGELOG(?:\.md)?|CONTRIBUTING(?:\.md)?)\b`)
	issuePattern      = regexp.MustCompile(`([\w.-]+/[\w.-]+)?#(\d+)\b`)
	commitPattern     = regexp.MustCompile(`(?i)\bcommit\s+([0-9a-f]{7,40})\b`)
	bareShaPattern    = regexp.MustCompile(`\b[0-9a-f]{40}\b`)
)

type candidate struct {
	start, end int
	citation   Citation
}

// ExtractCitations recognizes all reference patterns in text and returns
// citations ordered by source position. Overlapping matches resolve to
// the more specific pattern.
func ExtractCitations(text string) []Citation {
	var found []candidate
	claimed := func(start, end int) bool {
		for _, c := range found {
			if start < c.end && end > c.start {
				return true
			}
		}
		return false
	}
	add := func(start, end int, c Citation) {
		if claimed(start, end) {
			return
		}
		c.ID = uuid.NewString()
		c.Position = start
		c.Raw = text[start:end]
		c.Claim = surroundingSentence(text, start)
		found = append(found, candidate{start: start, end: end, citation: c})
	}

	// URLs first so paths inside links are not re-parsed as files
	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		url := strings.TrimRight(text[m[0]:m[1]], ".,;:!?")
		add(m[0], m[0]+len(url), Citation{Type: ExternalURL, URL: url})
	}

	for _, m := range githubLinePattern.FindAllStringSubmatchIndex(text, -1) {
		file := text[m[2]:m[3]]
		start, _ := strconv.Atoi(text[m[4]:m[5]])
		end := start
		cType := CodeReference
		if m[6] >= 0 {
			end, _ = strconv.Atoi(text[m[6]:m[7]])
			cType = LineRange
		}
		add(m[0], m[1], Citation{Type: cType, File: file, StartLine: start, EndLine: end})
	}

	for _, m := range lineRangePattern.FindAllStringSubmatchIndex(text, -1) {
		file := text[m[2]:m[3]]
		start, _ := strconv.Atoi(text[m[4]:m[5]])
		end, _ := strconv.Atoi(text[m[6]:m[7]])
		add(m[0], m[1], Citation{Type: LineRange, File: file, StartLine: start, EndLine: end})
	}

	for _, m := range fileLinePattern.FindAllStringSubmatchIndex(text, -1) {
		file := text[m[2]:m[3]]
		line, _ := strconv.Atoi(text[m[4]:m[5]])
		add(m[0], m[1], Citation{Type: CodeReference, File: file, StartLine: line, EndLine: line})
	}

	for _, m := range definedAtPattern.FindAllStringSubmatchIndex(text, -1) {
		line, _ := strconv.Atoi(text[m[4]:m[5]])
		add(m[0], m[1], Citation{
			Type:       IdentifierReference,
			Identifier: text[m[2]:m[3]],
			File:       text[m[6]:m[7]],
			StartLine:  line,
			EndLine:    line,
		})
	}

	for _, m := range identInPattern.FindAllStringSubmatchIndex(text, -1) {
		add(m[0], m[1], Citation{
			Type:       IdentifierReference,
			Identifier: text[m[2]:m[3]],
			File:       text[m[4]:m[5]],
		})
	}

	for _, m := range commitPattern.FindAllStringSubmatchIndex(text, -1) {
		add(m[0], m[1], Citation{Type: CommitReference, SHA: text[m[2]:m[3]]})
	}
	for _, m := range bareShaPattern.FindAllStringIndex(text, -1) {
		add(m[0], m[1], Citation{Type: CommitReference, SHA: text[m[0]:m[1]]})
	}

	for _, m := range docPattern.FindAllStringSubmatchIndex(text, -1) {
		add(m[0], m[1], Citation{Type: Documentation, File: text[m[2]:m[3]]})
	}

	for _, m := range issuePattern.FindAllStringSubmatchIndex(text, -1) {
		repo := ""
		if m[2] >= 0 {
			repo = text[m[2]:m[3]]
		}
		num, _ := strconv.Atoi(text[m[4]:m[5]])
		add(m[0], m[1], Citation{
			Type:        IssueReference,
			Identifier:  repo + "#" + text[m[4]:m[5]],
			IssueNumber: num,
			Repository:  repo,
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	out := make([]Citation, 0, len(found))
	for _, c := range found {
		out = append(out, c.citation)
	}
	return out
}

// surroundingSentence returns the sentence containing the given offset.
func surroundingSentence(text string, pos int) string {
	start := 0
	for i := pos - 1; i >= 0; i-- {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' || text[i] == '\n' {
			start = i + 1
			break
		}
	}
	end := len(text)
	for i := pos; i < len(text); i++ {
		// a period followed by space or EOL ends the sentence; periods
		// inside file names and URLs do not
		if text[i] == '\n' {
			end = i
			break
		}
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') &&
			(i+1 == len(text) || text[i+1] == ' ') {
			end = i + 1
			break
		}
	}
	return strings.TrimSpace(text[start:end])
}
