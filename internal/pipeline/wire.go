package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
	"github.com/AjayaPrabhu/lcablesync/internal/core/libpath"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
	"github.com/AjayaPrabhu/lcablesync/internal/core/render"
)

// Deps are the process-wide collaborators of a Processor. Engine should be
// built once and shared; it is serialized by ocr.New.
type Deps struct {
	Engine   ocr.Engine
	Renderer render.Renderer
	Ref      fuzzy.Candidates
	Open     Opener
}

// FromConfig assembles a Processor from the pipeline section of cfg.
func FromConfig(cfg common.PipelineConfig, deps Deps, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	table := normalize.DefaultConfusions
	if len(cfg.Confusions) > 0 {
		table = normalize.TableFromStrings(cfg.Confusions)
	}
	pattern := PatternFromConfig(cfg)
	for _, w := range normalize.CheckConsistency(table, pattern.Markers) {
		logger.Warn("confusion table and path markers disagree", "detail", w)
	}

	paths, err := libpath.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile path pattern: %w", err)
	}
	parse, err := NewParseStage(ParamsFromConfig(cfg), normalize.New(table), deps.Ref, logger)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "field heuristics", errors.Join(common.ErrInvalidInput, err))
	}
	opts := OptionsFromConfig(cfg)
	return NewProcessor(
		logger,
		deps.Open,
		NewOCRStage(deps.Renderer, deps.Engine, opts, logger),
		parse,
		paths,
		opts,
	), nil
}

// EngineConfig maps the OCR configuration section to engine settings.
func EngineConfig(cfg common.OCRConfig) ocr.Config {
	return ocr.Config{
		Engine:      cfg.Engine,
		Binary:      cfg.Tesseract,
		Languages:   cfg.Languages,
		TessdataDir: cfg.TessdataDir,
		PSM:         cfg.PSM,
		OEM:         cfg.OEM,
	}
}

// RendererConfig maps the OCR configuration section to renderer settings.
func RendererConfig(cfg common.OCRConfig) render.Config {
	return render.Config{Renderer: cfg.Renderer, Pdftoppm: cfg.Pdftoppm}
}
