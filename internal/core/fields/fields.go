// Package fields turns ordered document lines into named metadata values by
// running an ordered list of heuristics per field.
package fields

import (
	"strings"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

// Params tunes the positional and plausibility heuristics.
type Params struct {
	// Project numeric plausibility.
	MinDigits     int
	MaxDigits     int
	YearCutoff    int
	NumericWindow int

	// Maturity header search.
	HeaderWindow int
	MergedWindow int

	// Last-resort reference scan thresholds (0..100).
	ProjectLooseThreshold   float64
	MilestoneLooseThreshold float64

	MilestoneKeywords []string
	KeywordWindow     int

	// Reconciliation thresholds (0..100) carried on each Spec.
	Thresholds map[constants.Field]float64
}

// DefaultParams returns the tuning used for the known document templates.
func DefaultParams() Params {
	return Params{
		MinDigits:               2,
		MaxDigits:               4,
		YearCutoff:              2030,
		NumericWindow:           12,
		HeaderWindow:            15,
		MergedWindow:            15,
		ProjectLooseThreshold:   55,
		MilestoneLooseThreshold: 50,
		MilestoneKeywords:       []string{"central gateway", "gateway"},
		KeywordWindow:           12,
		Thresholds:              fuzzy.DefaultThresholds(),
	}
}

// Spec is a field, the heuristics tried for it in order, and the threshold
// used when its value is reconciled against reference data.
type Spec struct {
	Field      constants.Field
	Heuristics []Heuristic
	Threshold  float64
}

// Resolve runs the heuristics in order and returns the first value found, or
// constants.NotFound.
func (s Spec) Resolve(lines []string, text string) string {
	for _, h := range s.Heuristics {
		if v, ok := h(lines, text); ok {
			return v
		}
	}
	return constants.NotFound
}

// Specs builds the heuristic chains of every field. ref feeds the reference
// scan for Project and Milestone; it may be nil.
func Specs(p Params, ref fuzzy.Candidates) ([]Spec, error) {
	numeric, err := Numeric(p.MinDigits, p.MaxDigits, p.YearCutoff, p.NumericWindow)
	if err != nil {
		return nil, err
	}
	keyed := func(f constants.Field, extra ...Heuristic) Spec {
		hs := []Heuristic{KeyValue(string(f)), Split(string(f))}
		th, ok := p.Thresholds[f]
		if !ok {
			th = fuzzy.DefaultThreshold
		}
		return Spec{Field: f, Heuristics: append(hs, extra...), Threshold: th}
	}
	return []Spec{
		keyed(constants.FieldProject,
			Code(),
			numeric,
			Reference(ref, constants.FieldProject, p.ProjectLooseThreshold),
		),
		keyed(constants.FieldMilestone,
			Reference(ref, constants.FieldMilestone, p.MilestoneLooseThreshold),
			Keyword(p.MilestoneKeywords, p.KeywordWindow),
		),
		keyed(constants.FieldMaturity, HeaderVersion(p.HeaderWindow, p.MergedWindow)),
		keyed(constants.FieldVersion),
		keyed(constants.FieldSFACode),
		keyed(constants.FieldSerialDefinition),
		keyed(constants.FieldSFAName),
		keyed(constants.FieldApplicability),
		keyed(constants.FieldSFAType),
	}, nil
}

// Extractor resolves every field of a line sequence.
type Extractor struct {
	specs []Spec
}

// NewExtractor builds an Extractor from p and the reference candidates.
func NewExtractor(p Params, ref fuzzy.Candidates) (*Extractor, error) {
	specs, err := Specs(p, ref)
	if err != nil {
		return nil, err
	}
	return &Extractor{specs: specs}, nil
}

// Thresholds returns the reconciliation threshold of every field.
func (e *Extractor) Thresholds() map[constants.Field]float64 {
	out := make(map[constants.Field]float64, len(e.specs))
	for _, s := range e.specs {
		out[s.Field] = s.Threshold
	}
	return out
}

// Extract resolves each field then applies the cross-field derivations.
// Every field is present in the result; unresolved ones hold NotFound.
func (e *Extractor) Extract(lines []string, text string) map[constants.Field]string {
	out := make(map[constants.Field]string, len(e.specs))
	for _, s := range e.specs {
		out[s.Field] = s.Resolve(lines, text)
	}
	Derive(out)
	return out
}

// Derive copies Maturity into an unresolved Version when it looks like a
// version token, and copies a resolved SFA code into Serial Definition.
func Derive(f map[constants.Field]string) {
	if constants.IsNotFound(f[constants.FieldVersion]) {
		if m := f[constants.FieldMaturity]; !constants.IsNotFound(m) && (strings.HasPrefix(m, "V") || strings.HasPrefix(m, "v")) {
			f[constants.FieldVersion] = m
		}
	}
	if c := f[constants.FieldSFACode]; !constants.IsNotFound(c) {
		f[constants.FieldSerialDefinition] = c
	}
}

// Lines merges recognized lines with the lines of the text layer, collapsing
// whitespace and dropping empty lines. Order is preserved.
func Lines(recognized []string, textLayer string) []string {
	out := make([]string, 0, len(recognized))
	add := func(s string) {
		if s = normalize.Spaces(s); s != "" {
			out = append(out, s)
		}
	}
	for _, ln := range recognized {
		add(ln)
	}
	if textLayer != "" {
		for _, ln := range strings.Split(textLayer, "\n") {
			add(ln)
		}
	}
	return out
}
