package pipeline

import (
	"log/slog"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fields"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

// ParseStage turns lines into field values and reconciles them with the
// reference dataset.
type ParseStage struct {
	extractor  *fields.Extractor
	matcher    *fuzzy.Matcher
	ref        fuzzy.Candidates
	thresholds map[constants.Field]float64
	logger     *slog.Logger
}

// NewParseStage builds the heuristic chains from p. ref may be nil, in which
// case every match is degenerate and extracted values pass through.
func NewParseStage(p fields.Params, norm normalize.Normalizer, ref fuzzy.Candidates, logger *slog.Logger) (*ParseStage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ex, err := fields.NewExtractor(p, ref)
	if err != nil {
		return nil, err
	}
	return &ParseStage{
		extractor:  ex,
		matcher:    fuzzy.New(norm),
		ref:        ref,
		thresholds: ex.Thresholds(),
		logger:     logger,
	}, nil
}

// Extract resolves every field from lines; text is the raw text layer.
func (s *ParseStage) Extract(lines []string, text string) map[constants.Field]string {
	return s.extractor.Extract(lines, text)
}

// Match reconciles extracted values against the reference dataset.
func (s *ParseStage) Match(extracted map[constants.Field]string) map[constants.Field]fuzzy.Result {
	out := s.matcher.Reconcile(extracted, s.ref, s.thresholds)
	for _, f := range constants.ReferenceFields {
		r := out[f]
		if !constants.IsNotFound(r.Extracted) && r.Matched != r.Extracted {
			s.logger.Debug("field reconciled", "field", f, "extracted", r.Extracted, "matched", r.Matched, "similarity", r.Score)
		}
	}
	return out
}

// unresolved returns every field set to NotFound.
func unresolved() map[constants.Field]string {
	out := make(map[constants.Field]string)
	for _, f := range constants.AllFields() {
		out[f] = constants.NotFound
	}
	return out
}
