package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

// Heuristic tries to resolve a field from the ordered lines of a page and its
// text-layer string. It reports false when it has nothing to offer.
type Heuristic func(lines []string, text string) (string, bool)

var (
	reCode    = regexp.MustCompile(`^[A-Za-z]+\d+$`)
	reVersion = regexp.MustCompile(`(?i)\bV[\s:-]*([0-9]{1,2})\b`)
)

// KeyValue matches "<key> : value" or "<key> = value" anywhere in a line.
func KeyValue(key string) Heuristic {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key) + `\s*[:=]\s*(.+)`)
	return func(lines []string, _ string) (string, bool) {
		for _, ln := range lines {
			if m := re.FindStringSubmatch(ln); m != nil {
				if v := strings.TrimSpace(m[1]); v != "" {
					return v, true
				}
			}
		}
		return "", false
	}
}

// Split takes the text after the key token and returns what follows the first
// ':' or, failing that, the first '='.
func Split(key string) Heuristic {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key))
	return func(lines []string, _ string) (string, bool) {
		for _, ln := range lines {
			loc := re.FindStringIndex(ln)
			if loc == nil {
				continue
			}
			rest := ln[loc[1]:]
			for _, sep := range []string{":", "="} {
				if _, after, ok := strings.Cut(rest, sep); ok {
					if v := strings.TrimSpace(after); v != "" {
						return v, true
					}
				}
			}
		}
		return "", false
	}
}

// Code returns the first line that is exactly a letter run followed by a
// digit run, like "X1310".
func Code() Heuristic {
	return func(lines []string, _ string) (string, bool) {
		for _, ln := range lines {
			if reCode.MatchString(ln) {
				return ln, true
			}
		}
		return "", false
	}
}

// Numeric returns the first bare number of minDigits..maxDigits digits found in
// the first window lines. Four-digit values above yearCutoff read as years and
// are skipped. Only the first number of each line is considered.
func Numeric(minDigits, maxDigits, yearCutoff, window int) (Heuristic, error) {
	if minDigits < 1 || maxDigits < minDigits {
		return nil, fmt.Errorf("numeric project digits: invalid bounds %d..%d", minDigits, maxDigits)
	}
	re, err := regexp.Compile(fmt.Sprintf(`\b(\d{%d,%d})\b`, minDigits, maxDigits))
	if err != nil {
		return nil, fmt.Errorf("numeric project digits: %w", err)
	}
	return func(lines []string, _ string) (string, bool) {
		for _, ln := range head(lines, window) {
			m := re.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			if len(m[1]) == 4 {
				if n, _ := strconv.Atoi(m[1]); n > yearCutoff {
					continue
				}
			}
			return m[1], true
		}
		return "", false
	}, nil
}

// HeaderVersion looks for a V<n> token line by line in the first window lines,
// then once more across those lines joined into one string.
func HeaderVersion(window, mergedWindow int) Heuristic {
	return func(lines []string, _ string) (string, bool) {
		for _, ln := range head(lines, window) {
			if m := reVersion.FindStringSubmatch(ln); m != nil {
				return "V" + m[1], true
			}
		}
		merged := strings.Join(head(lines, mergedWindow), " ")
		if m := reVersion.FindStringSubmatch(merged); m != nil {
			return "V" + m[1], true
		}
		return "", false
	}
}

// Reference scans every line for the best-matching known value of field and
// returns that value when its score reaches threshold (0..100).
func Reference(ref fuzzy.Candidates, field constants.Field, threshold float64) Heuristic {
	return func(lines []string, _ string) (string, bool) {
		if ref == nil {
			return "", false
		}
		cands := ref.Values(field)
		if len(cands) == 0 || len(lines) == 0 {
			return "", false
		}
		normLines := make([]string, len(lines))
		for i, ln := range lines {
			normLines[i] = normalize.ForMatch(ln)
		}
		var best string
		var bestScore float64
		for _, c := range cands {
			nc := normalize.ForMatch(c)
			for _, nl := range normLines {
				if s := fuzzy.Ratio(nc, nl); s > bestScore {
					best, bestScore = c, s
				}
			}
		}
		if best != "" && bestScore >= threshold {
			return best, true
		}
		return "", false
	}
}

// Keyword returns the first of the first window lines containing one of the
// keywords, whitespace-collapsed. Spaces inside a keyword match any whitespace run.
func Keyword(keywords []string, window int) Heuristic {
	res := make([]*regexp.Regexp, 0, len(keywords))
	for _, k := range keywords {
		parts := strings.Fields(k)
		if len(parts) == 0 {
			continue
		}
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		res = append(res, regexp.MustCompile(`(?i)`+strings.Join(parts, `\s+`)))
	}
	return func(lines []string, _ string) (string, bool) {
		for _, ln := range head(lines, window) {
			for _, re := range res {
				if re.MatchString(ln) {
					return normalize.Spaces(ln), true
				}
			}
		}
		return "", false
	}
}

func head(lines []string, n int) []string {
	if n <= 0 || n >= len(lines) {
		return lines
	}
	return lines[:n]
}
