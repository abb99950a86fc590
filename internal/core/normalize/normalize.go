// Package normalize canonicalizes strings before they are compared.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSeparators = regexp.MustCompile(`[\p{Z}\s\-_]+`)
	reSpaces     = regexp.MustCompile(`[\p{Z}\s]+`)
	quoteFixer   = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"“", "'", "”", "'", "„", "'", "‟", "'",
		"`", "'", "\"", "'",
	)
)

// Table maps a scanner-confusable character to its canonical replacement.
type Table map[rune]rune

// DefaultConfusions is the confusion table applied by Normalize.
var DefaultConfusions = Table{
	'0': 'O',
	'1': 'I',
	'5': 'S',
	'8': 'B',
	'$': 'S',
	'L': 'I',
}

// TableFromStrings converts a config map of single-character strings.
// Entries that are not exactly one character on each side are skipped.
func TableFromStrings(m map[string]string) Table {
	t := make(Table, len(m))
	for k, v := range m {
		kr, vr := []rune(k), []rune(v)
		if len(kr) != 1 || len(vr) != 1 {
			continue
		}
		t[kr[0]] = vr[0]
	}
	return t
}

// Normalizer applies the full comparison canonicalization with a fixed table.
// The zero value uses DefaultConfusions.
type Normalizer struct {
	table Table
}

// New returns a Normalizer using table, or DefaultConfusions when table is nil.
func New(table Table) Normalizer {
	return Normalizer{table: table}
}

// Normalize strips diacritics, uppercases s, canonicalizes quotes, collapses
// whitespace, hyphen and underscore runs into one space and finally applies
// the confusion table. It is total and idempotent for tables whose targets
// are not themselves keys.
func (n Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Accents go first: some precomposed lowercase letters have no uppercase
	// form and only uppercase once their base letter is exposed.
	s = StripAccents(strings.ToUpper(StripAccents(s)))
	s = quoteFixer.Replace(s)
	s = strings.TrimSpace(reSeparators.ReplaceAllString(s, " "))

	table := n.table
	if table == nil {
		table = DefaultConfusions
	}
	return strings.Map(func(r rune) rune {
		if to, ok := table[r]; ok {
			return to
		}
		return r
	}, s)
}

var std = Normalizer{}

// Normalize canonicalizes s with DefaultConfusions.
func Normalize(s string) string {
	return std.Normalize(s)
}

// StripAccents decomposes s and drops combining marks.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ForMatch is the lighter canonical form used when scanning document lines
// for reference values: accents and quotes are folded, separators collapsed,
// and the result lowercased. No confusion table is applied.
func ForMatch(s string) string {
	s = StripAccents(strings.TrimSpace(s))
	s = quoteFixer.Replace(s)
	s = reSeparators.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// Spaces collapses every whitespace run to one space and trims.
func Spaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// CheckConsistency reports entries of table that cannot behave as written and
// confusions that the LIB path marker does not tolerate. The table is never
// widened; callers log the findings.
func CheckConsistency(table Table, pathMarkers string) []string {
	var issues []string
	keys := make([]rune, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		v := table[k]
		if unicode.IsLower(k) {
			issues = append(issues, fmt.Sprintf("confusion %q→%q never applies: input is uppercased first", k, v))
		}
		if _, chained := table[v]; chained && v != k {
			issues = append(issues, fmt.Sprintf("confusion %q→%q chains into %q→%q", k, v, v, table[v]))
		}
	}

	// Characters the table folds into a path marker letter should be accepted
	// where the marker is read.
	for _, k := range keys {
		v := table[k]
		if strings.ContainsRune(pathMarkers, v) && !strings.ContainsRune(pathMarkers, k) {
			issues = append(issues, fmt.Sprintf("confusion %q→%q is not tolerated by the path marker set %q", k, v, pathMarkers))
		}
	}
	return issues
}
