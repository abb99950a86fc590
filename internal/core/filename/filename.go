// Package filename reads document metadata encoded in schematic file names
// and folder paths, e.g. "SCH_cmfb_1_CIRCUIT_DE_DEMARRAGE_Starter_V17.pdf".
package filename

import (
	"path"
	"regexp"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

var (
	rePlatformCode = regexp.MustCompile(`(?i)_([a-z0-9]+)_(\d{1,4})_`)
	reLabel        = regexp.MustCompile(`(?i)^(.*?)_v\d+`)
	reVersion      = regexp.MustCompile(`(?i)_(V[0-9]+)`)
	reMilestone    = regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9])(VPC|VC|PIED|PIEC|PT1?|PT2?|PIEB|RFQ_PIEA|RFQ|QCDP)(?:[^A-Za-z0-9]|$)`)
	reProjectPath  = regexp.MustCompile(`/(X[0-9A-Za-z]+)[/_]`)
	reProjectText  = regexp.MustCompile(`\b(X[0-9A-Za-z_]+)\b`)
)

// Meta is what a file name and its folder path tell about a document.
// Empty strings mean the token was absent.
type Meta struct {
	Platform       string `json:"platform,omitempty"`
	Code           string `json:"code,omitempty"`
	Label          string `json:"label,omitempty"`
	Version        string `json:"version,omitempty"`
	Milestone      string `json:"milestone,omitempty"`
	Project        string `json:"project,omitempty"`
	MaturitySchema string `json:"maturity_schema,omitempty"`
}

// IsZero reports whether nothing was recognized.
func (m Meta) IsZero() bool {
	return m == Meta{}
}

// Parse extracts platform, function code, label, version and milestone from
// the base name of p, and the project code from its folder path. Backslashes
// are treated as separators.
func Parse(p string) Meta {
	p = strings.ReplaceAll(p, `\`, "/")
	base := path.Base(p)
	lower := strings.ToLower(base)

	var m Meta
	if loc := rePlatformCode.FindStringSubmatchIndex(lower); loc != nil {
		m.Platform = lower[loc[2]:loc[3]]
		m.Code = lower[loc[4]:loc[5]]
		if lm := reLabel.FindStringSubmatch(lower[loc[1]:]); lm != nil {
			m.Label = strings.TrimSpace(strings.ReplaceAll(lm[1], "_", " "))
		}
	}
	if vm := reVersion.FindStringSubmatch(base); vm != nil {
		m.Version = strings.ToUpper(vm[1])
	}
	m.Milestone = Milestone(p)
	m.Project = ProjectFromPath(p)
	return m
}

// Milestone returns the first milestone token in s, uppercased. Underscores
// count as separators so tokens embedded in file names are found.
func Milestone(s string) string {
	if mm := reMilestone.FindStringSubmatch(s); mm != nil {
		return strings.ToUpper(mm[1])
	}
	return ""
}

// ProjectFromPath returns the X-prefixed project folder or file prefix in p.
func ProjectFromPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if pm := reProjectPath.FindStringSubmatch(p); pm != nil {
		return pm[1]
	}
	return ""
}

// ApplyText fills what the path left empty from document text: the first
// X-prefixed project token, the first milestone token and the maturity schema.
func (m *Meta) ApplyText(text string) {
	if text == "" {
		return
	}
	if m.Project == "" {
		if pm := reProjectText.FindStringSubmatch(text); pm != nil {
			m.Project = pm[1]
		}
	}
	if m.Milestone == "" {
		m.Milestone = Milestone(text)
	}
	if ms := MaturitySchema(text); ms != "" {
		m.MaturitySchema = ms
	}
}

// MaturitySchema classifies document text by its maturity keyword. Accents,
// case and separator runs are ignored.
func MaturitySchema(text string) string {
	lower := normalize.ForMatch(text)
	switch {
	case strings.Contains(lower, "definitif"):
		return "Definitif (Serial version)"
	case strings.Contains(lower, "hypothese"):
		return "Hypotheses"
	case strings.Contains(lower, "in work"):
		return "In Work"
	}
	return ""
}
