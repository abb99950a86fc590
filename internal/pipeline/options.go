package pipeline

import (
	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fields"
	"github.com/AjayaPrabhu/lcablesync/internal/core/imaging"
	"github.com/AjayaPrabhu/lcablesync/internal/core/libpath"
)

// Options tunes rendering and the multi-crop recognition of a run.
type Options struct {
	DPI           int
	Upscale       int
	CropRatio     float64
	CropScales    []float64
	MinCropHeight int
	ForceOCR      bool
	Preprocess    imaging.Options
}

// DefaultOptions renders at 300 DPI and recognizes the top 12%, 20% and 32%
// of the first page at 3x plus the whole page at 2x.
func DefaultOptions() Options {
	return Options{
		DPI:           300,
		Upscale:       3,
		CropRatio:     0.20,
		CropScales:    []float64{0.6, 1.0, 1.6},
		MinCropHeight: 30,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	if o.Upscale <= 0 {
		o.Upscale = d.Upscale
	}
	if o.CropRatio <= 0 {
		o.CropRatio = d.CropRatio
	}
	if len(o.CropScales) == 0 {
		o.CropScales = d.CropScales
	}
	if o.MinCropHeight <= 0 {
		o.MinCropHeight = d.MinCropHeight
	}
	return o
}

// fullPageUpscale is the scale used for the whole-page pass: one step below
// the header scale, never below 1.
func (o Options) fullPageUpscale() int {
	return max(1, o.Upscale-1)
}

// OptionsFromConfig maps the pipeline configuration section to Options.
func OptionsFromConfig(cfg common.PipelineConfig) Options {
	return Options{
		DPI:           cfg.DPI,
		Upscale:       cfg.Upscale,
		CropRatio:     cfg.HeaderCropRatio,
		CropScales:    cfg.HeaderCropScales,
		MinCropHeight: cfg.MinCropHeight,
		ForceOCR:      cfg.ForceOCR,
	}.withDefaults()
}

// ParamsFromConfig maps the pipeline configuration section to field
// heuristic parameters. Unknown threshold keys are ignored.
func ParamsFromConfig(cfg common.PipelineConfig) fields.Params {
	p := fields.DefaultParams()
	// Both bounds are taken as configured; an inverted range is rejected
	// when the heuristics are built.
	if cfg.ProjectMinDigits > 0 {
		p.MinDigits = cfg.ProjectMinDigits
	}
	if cfg.ProjectMaxDigits > 0 {
		p.MaxDigits = cfg.ProjectMaxDigits
	}
	if cfg.HeaderWindow > 0 {
		p.HeaderWindow = cfg.HeaderWindow
	}
	if cfg.MergedWindow > 0 {
		p.MergedWindow = cfg.MergedWindow
	}
	if cfg.NumericWindow > 0 {
		p.NumericWindow = cfg.NumericWindow
	}
	if cfg.KeywordWindow > 0 {
		p.KeywordWindow = cfg.KeywordWindow
	}
	if cfg.ProjectYearCutoff > 0 {
		p.YearCutoff = cfg.ProjectYearCutoff
	}
	if cfg.ProjectLooseThreshold > 0 {
		p.ProjectLooseThreshold = cfg.ProjectLooseThreshold
	}
	if cfg.MilestoneLooseThreshold > 0 {
		p.MilestoneLooseThreshold = cfg.MilestoneLooseThreshold
	}
	if len(cfg.MilestoneKeywords) > 0 {
		p.MilestoneKeywords = cfg.MilestoneKeywords
	}
	for _, f := range constants.AllFields() {
		if v, ok := cfg.Thresholds[string(f)]; ok {
			p.Thresholds[f] = v
		}
	}
	return p
}

// PatternFromConfig returns the LIB path pattern with the configured markers.
func PatternFromConfig(cfg common.PipelineConfig) libpath.Pattern {
	p := libpath.DefaultPattern
	if cfg.PathMarkers != "" {
		p.Markers = cfg.PathMarkers
	}
	return p
}
