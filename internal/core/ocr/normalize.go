package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reBoxNoise   = regexp.MustCompile(`^[\s_\-=|.]*$`)
)

// SplitLines breaks page text into trimmed lines, dropping empty lines
// and table-rule noise made only of underscores, dashes, bars and dots.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(reMultiSpace.ReplaceAllString(ln, " "))
		if ln == "" || IsNoise(ln) {
			continue
		}
		out = append(out, ln)
	}
	return out
}

// IsNoise reports whether a recognized line carries no characters beyond
// ruling and punctuation.
func IsNoise(line string) bool {
	return reBoxNoise.MatchString(line)
}
