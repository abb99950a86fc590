// Package fuzzy reconciles noisy extracted values against reference candidates.
package fuzzy

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

// DefaultThreshold applies to well-structured fields (SFA code, name, type).
const DefaultThreshold = 80.0

// DefaultThresholds returns the per-field acceptance thresholds (0..100).
// Project and Milestone come from scanned headers and accept looser matches.
func DefaultThresholds() map[constants.Field]float64 {
	return map[constants.Field]float64{
		constants.FieldProject:       55,
		constants.FieldMilestone:     50,
		constants.FieldMaturity:      DefaultThreshold,
		constants.FieldSFACode:       DefaultThreshold,
		constants.FieldSFAName:       DefaultThreshold,
		constants.FieldApplicability: DefaultThreshold,
		constants.FieldSFAType:       DefaultThreshold,
	}
}

// Candidates is the read-only view of the reference dataset the matcher needs.
type Candidates interface {
	Values(field constants.Field) []string
}

// Result is the reconciliation outcome of one field.
type Result struct {
	Field     constants.Field `json:"field"`
	Extracted string          `json:"extracted_value"`
	Matched   string          `json:"matched_value"`
	Score     float64         `json:"similarity"`
}

// Matcher scores strings after normalizing them with its Normalizer.
type Matcher struct {
	norm normalize.Normalizer
}

// New returns a Matcher using n for canonicalization.
func New(n normalize.Normalizer) *Matcher {
	return &Matcher{norm: n}
}

// Similarity returns the matching-blocks ratio of the normalized strings on a
// 0..100 scale: twice the matched characters over the total length.
func (m *Matcher) Similarity(a, b string) float64 {
	return Ratio(m.norm.Normalize(a), m.norm.Normalize(b))
}

// Ratio scores two already-canonical strings on a 0..100 scale.
func Ratio(a, b string) float64 {
	sm := difflib.NewMatcher(chars(a), chars(b))
	return sm.Ratio() * 100
}

// Match returns the best candidate for value and its score. ok is true when
// the score reaches threshold. Empty or sentinel values and empty candidate
// lists return ("", 0, false) without scoring anything. On rejection the best
// score is still returned.
func (m *Matcher) Match(value string, candidates []string, threshold float64) (best string, score float64, ok bool) {
	if constants.IsNotFound(value) || len(candidates) == 0 {
		return "", 0, false
	}
	nv := m.norm.Normalize(value)
	bestIdx := -1
	for i, c := range candidates {
		s := Ratio(nv, m.norm.Normalize(c))
		if bestIdx < 0 || s > score {
			bestIdx, score = i, s
		}
	}
	if score >= threshold {
		return candidates[bestIdx], score, true
	}
	return "", score, false
}

// Reconcile matches every reference-backed field against ref. Version and
// Serial Definition pass through untouched with a score of 100. A rejected
// field keeps its extracted value as the matched value.
func (m *Matcher) Reconcile(extracted map[constants.Field]string, ref Candidates, thresholds map[constants.Field]float64) map[constants.Field]Result {
	out := make(map[constants.Field]Result, len(constants.AllFields()))
	for _, f := range constants.ReferenceFields {
		val := valueOf(extracted, f)
		th, ok := thresholds[f]
		if !ok {
			th = DefaultThreshold
		}
		var cands []string
		if ref != nil {
			cands = ref.Values(f)
		}
		res := Result{Field: f, Extracted: val, Matched: val}
		if best, score, accepted := m.Match(val, cands, th); accepted {
			res.Matched = best
			res.Score = score
		} else {
			res.Score = score
		}
		out[f] = res
	}
	for _, f := range constants.PassThroughFields {
		val := valueOf(extracted, f)
		out[f] = Result{Field: f, Extracted: val, Matched: val, Score: 100}
	}
	return out
}

func valueOf(m map[constants.Field]string, f constants.Field) string {
	if v, ok := m[f]; ok && v != "" {
		return v
	}
	return constants.NotFound
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
