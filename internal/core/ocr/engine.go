// Package ocr wraps text-recognition engines behind a narrow interface.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/constants"
)

// Line is one recognized or extracted line of text in reading order.
type Line struct {
	Text       string               `json:"text"`
	Provenance constants.Provenance `json:"provenance"`
	Confidence float64              `json:"confidence,omitempty"` // 0..1, meaningful when Scored
	Scored     bool                 `json:"scored,omitempty"`
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// Engine recognizes text on a preprocessed single-channel raster.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img *image.Gray) ([]Line, error)
}

// Config selects and tunes an engine.
type Config struct {
	Engine      string // "tesseract" (CLI, default) or "gosseract"
	Binary      string
	Languages   []string
	TessdataDir string
	PSM         int
	OEM         int
	TempDir     string
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = "tesseract"
	}
	if c.Binary == "" {
		c.Binary = "tesseract"
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"eng", "fra"}
	}
	return c
}

func (c Config) langArg() string {
	return strings.Join(c.Languages, "+")
}

// ErrUnknownEngine is returned by New for an unsupported engine name.
var ErrUnknownEngine = errors.New("unknown ocr engine")

// New builds the configured engine, wrapped so that only one recognition
// runs at a time on it. Build it once per process and share it.
func New(cfg Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	var (
		e   Engine
		err error
	)
	switch cfg.Engine {
	case "tesseract":
		e = NewTesseractCLI(cfg, ExecRunner{}, logger)
	case "gosseract":
		e, err = NewGosseract(cfg, logger)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("ocr engine ready", "engine", e.Name(), "languages", cfg.langArg())
	return Serialize(e), nil
}

// Serialize guards e so that at most one Recognize call is in flight. Callers
// waiting for their turn give up when their context ends.
func Serialize(e Engine) Engine {
	if s, ok := e.(*serialized); ok {
		return s
	}
	return &serialized{e: e, sem: make(chan struct{}, 1)}
}

type serialized struct {
	e   Engine
	sem chan struct{}
}

func (s *serialized) Name() string { return s.e.Name() }

func (s *serialized) Recognize(ctx context.Context, img *image.Gray) ([]Line, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()
	return s.e.Recognize(ctx, img)
}

// Close releases the wrapped engine when it holds native resources.
func (s *serialized) Close() error {
	if c, ok := s.e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
