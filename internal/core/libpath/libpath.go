// Package libpath extracts LIB_FONCTIONS_SITE library references from raw text.
package libpath

import (
	"regexp"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

// Pattern describes the tolerant path token: an optional digit run, one of
// Markers, the Segment literal with optional separators, then anything up to
// and including Terminator.
type Pattern struct {
	Markers    string
	Segment    []string
	Terminator string
}

// DefaultPattern matches "$LIB_FONCTIONS_SITE ... sheet1", accepting S for a
// misread $. A 5 read in place of $ is not accepted.
var DefaultPattern = Pattern{
	Markers:    "$S",
	Segment:    []string{"LIB", "FONCTIONS", "SITE"},
	Terminator: "sheet1",
}

// Compile builds the case-insensitive, dot-matches-newline expression.
func (p Pattern) Compile() (*regexp.Regexp, error) {
	parts := make([]string, len(p.Segment))
	for i, s := range p.Segment {
		parts[i] = regexp.QuoteMeta(s)
	}
	expr := `(?is)(?:\d+\s*)?[` + quoteClass(p.Markers) + `]\s*` +
		strings.Join(parts, `[_\s\-]?`) +
		`.*?` + regexp.QuoteMeta(p.Terminator)
	return regexp.Compile(expr)
}

func quoteClass(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ']', '[', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Extractor finds path tokens in text.
type Extractor struct {
	re *regexp.Regexp
}

// New compiles p into an Extractor.
func New(p Pattern) (*Extractor, error) {
	re, err := p.Compile()
	if err != nil {
		return nil, err
	}
	return &Extractor{re: re}, nil
}

var defaultExtractor = MustNew(DefaultPattern)

// MustNew is New that panics on an invalid pattern.
func MustNew(p Pattern) *Extractor {
	e, err := New(p)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the whitespace-collapsed, slash-normalized matches of text,
// de-duplicated in first-seen order. It never returns nil.
func (e *Extractor) Extract(text string) []string {
	out := []string{}
	if text == "" {
		return out
	}
	seen := map[string]struct{}{}
	for _, m := range e.re.FindAllString(text, -1) {
		p := strings.ReplaceAll(normalize.Spaces(m), `\`, "/")
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Extract runs the DefaultPattern extractor.
func Extract(text string) []string {
	return defaultExtractor.Extract(text)
}
