// Package app assembles the long-lived collaborators shared by the entry
// points.
package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
	"github.com/AjayaPrabhu/lcablesync/internal/core/render"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
	"github.com/AjayaPrabhu/lcablesync/internal/refdata"
)

// NewLogger builds the slog logger described by cfg, writing to w (stdout
// when nil).
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to slog; unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Runtime holds the process-wide pipeline and the engine it shares.
type Runtime struct {
	Processor *pipeline.Processor
	Engine    ocr.Engine
	Ref       *refdata.Dataset
	logger    *slog.Logger
}

// Bootstrap loads the reference workbook, builds the recognition engine and
// renderer, and assembles the processor. A missing engine or renderer is
// logged and the pipeline runs text-layer only.
func Bootstrap(cfg *common.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ref, err := refdata.LoadXLSX(cfg.Reference.Path, cfg.Reference.Sheet, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("reference data loaded", "path", cfg.Reference.Path, "values", ref.Len())

	engine, err := ocr.New(pipeline.EngineConfig(cfg.OCR), logger)
	if err != nil {
		logger.Warn("recognition engine unavailable", "engine", cfg.OCR.Engine, "error", err)
		engine = nil
	}
	renderer, err := render.New(pipeline.RendererConfig(cfg.OCR), logger)
	if err != nil {
		logger.Warn("renderer unavailable", "renderer", cfg.OCR.Renderer, "error", err)
		renderer = nil
	}

	proc, err := pipeline.FromConfig(cfg.Pipeline, pipeline.Deps{
		Engine:   engine,
		Renderer: renderer,
		Ref:      ref,
	}, logger)
	if err != nil {
		if c, ok := engine.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return &Runtime{Processor: proc, Engine: engine, Ref: ref, logger: logger}, nil
}

// Close releases the engine.
func (r *Runtime) Close() error {
	if c, ok := r.Engine.(io.Closer); ok {
		if err := c.Close(); err != nil {
			r.logger.Warn("close recognition engine", "error", err)
			return err
		}
	}
	return nil
}
