package rules

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// Recognized keywords.
const (
	KeywordAlert       = "ALERT"
	KeywordIf          = "IF"
	KeywordFor         = "FOR"
	KeywordLabels      = "LABELS"
	KeywordAnnotations = "ANNOTATIONS"
)

// labelPattern matches name="value" pairs. Separators between pairs are
// ignored.
var labelPattern = regexp.MustCompile(`(\w+)\s*=\s*"(.*?)"`)

// Record is the keyword map of one rule, as read from rule text.
type Record struct {
	// Line is the 1-based line the record starts on.
	Line   int
	Tokens map[string]string
}

// Get returns the value of keyword and whether it was present.
func (r Record) Get(keyword string) (string, bool) {
	v, ok := r.Tokens[keyword]
	return v, ok
}

// Segment splits rule text into records. A second ALERT line closes the
// current record. The last record is always returned, so text without any
// ALERT line still yields one record.
func Segment(text string) ([]Record, error) {
	var records []Record
	current := Record{Tokens: map[string]string{}}

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexFunc(line, unicode.IsSpace)
		if idx < 0 {
			return nil, &core.RuleSyntaxError{Line: lineNo, Text: line}
		}
		keyword := line[:idx]
		value := strings.TrimLeftFunc(line[idx:], unicode.IsSpace)

		if keyword == KeywordAlert {
			if _, open := current.Tokens[KeywordAlert]; open {
				records = append(records, current)
				current = Record{Tokens: map[string]string{}}
			}
		}
		if current.Line == 0 {
			current.Line = lineNo
		}
		current.Tokens[keyword] = value
	}

	if current.Line == 0 {
		current.Line = 1
	}
	return append(records, current), nil
}

// ParseLabels extracts name="value" pairs from a LABELS or ANNOTATIONS
// value such as {service="api", env="prod"}. Later duplicates win.
func ParseLabels(text string) map[string]string {
	out := map[string]string{}
	text = strings.Trim(strings.TrimSpace(text), "{}")
	for _, m := range labelPattern.FindAllStringSubmatch(text, -1) {
		out[m[1]] = m[2]
	}
	return out
}
