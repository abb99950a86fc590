// Package render rasterizes PDF pages for recognition.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
)

// Renderer turns one 1-based page of a PDF into a raster.
type Renderer interface {
	Render(ctx context.Context, data []byte, page, dpi int) (image.Image, error)
}

// ErrUnknownRenderer is returned by New for an unsupported renderer name.
var ErrUnknownRenderer = errors.New("unknown renderer")

// Config selects a renderer.
type Config struct {
	Renderer string // "poppler" (default) or "fitz"
	Pdftoppm string
	TempDir  string
}

// New builds the configured renderer.
func New(cfg Config, logger *slog.Logger) (Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Renderer {
	case "", "poppler":
		return NewPoppler(cfg.Pdftoppm, cfg.TempDir, ocr.ExecRunner{}, logger), nil
	case "fitz":
		return NewFitz(logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, cfg.Renderer)
	}
}

// Poppler shells out to pdftoppm.
type Poppler struct {
	bin     string
	tempDir string
	runner  ocr.Runner
	logger  *slog.Logger
}

func NewPoppler(bin, tempDir string, runner ocr.Runner, logger *slog.Logger) *Poppler {
	if bin == "" {
		bin = "pdftoppm"
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poppler{bin: bin, tempDir: tempDir, runner: runner, logger: logger}
}

func (p *Poppler) Render(ctx context.Context, data []byte, page, dpi int) (image.Image, error) {
	if page < 1 {
		return nil, common.StageError(common.ErrRender, fmt.Sprintf("invalid page %d", page), nil)
	}
	if dpi <= 0 {
		dpi = 300
	}
	tmpDir, err := os.MkdirTemp(p.tempDir, "lcablesync-render-*")
	if err != nil {
		return nil, common.StageError(common.ErrRender, "create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			p.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, common.StageError(common.ErrRender, "write temp pdf", err)
	}
	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)

	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := p.runner.Run(ctx, p.bin, p.logger,
		"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", "-singlefile", in, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.StageError(common.ErrRender,
			"pdftoppm: "+ocr.Truncate(strings.TrimSpace(string(errb)), 512), err)
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, common.StageError(common.ErrRender, "pdftoppm produced no image", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, common.StageError(common.ErrRender, "decode rendered page", err)
	}
	p.logger.Debug("page rendered", "page", page, "dpi", dpi, "bounds", img.Bounds().String())
	return img, nil
}
