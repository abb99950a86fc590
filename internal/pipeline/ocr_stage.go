package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/imaging"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
	"github.com/AjayaPrabhu/lcablesync/internal/core/render"
)

// OCRStage renders pages, prepares the rasters and runs recognition.
// Every failure is recorded and degrades to fewer (possibly zero) lines.
type OCRStage struct {
	renderer render.Renderer
	engine   ocr.Engine
	opts     Options
	logger   *slog.Logger
}

func NewOCRStage(renderer render.Renderer, engine ocr.Engine, opts Options, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{renderer: renderer, engine: engine, opts: opts.withDefaults(), logger: logger}
}

// Header recognizes the header of page at each configured crop height and
// then the whole page. It returns the merged, de-duplicated lines and, on
// their own, the lines of the whole-page pass.
func (s *OCRStage) Header(ctx context.Context, data []byte, page int, tr *trace) (merged, full []ocr.Line) {
	img := s.render(ctx, data, page, tr)
	if img == nil {
		return nil, nil
	}

	groups := make([][]ocr.Line, 0, len(s.opts.CropScales)+1)
	for _, scale := range s.opts.CropScales {
		if ctx.Err() != nil {
			break
		}
		ratio := s.opts.CropRatio * scale
		crop := imaging.Crop(img, ratio, s.opts.MinCropHeight)
		label := fmt.Sprintf("header crop %.2f", ratio)
		groups = append(groups, s.recognize(ctx, crop, s.opts.Upscale, page, label, tr))
	}
	if ctx.Err() == nil {
		full = s.recognize(ctx, img, s.opts.fullPageUpscale(), page, "full page", tr)
		groups = append(groups, full)
	}
	merged = MergeLines(groups...)
	tr.info(constants.StageOCR, page, "header recognized", "lines", len(merged), "passes", len(groups))
	return merged, full
}

// Page recognizes a whole page at the header upscale.
func (s *OCRStage) Page(ctx context.Context, data []byte, page int, tr *trace) []ocr.Line {
	img := s.render(ctx, data, page, tr)
	if img == nil {
		return nil
	}
	lines := MergeLines(s.recognize(ctx, img, s.opts.Upscale, page, "full page", tr))
	tr.info(constants.StageOCR, page, "page recognized", "lines", len(lines))
	return lines
}

func (s *OCRStage) render(ctx context.Context, data []byte, page int, tr *trace) image.Image {
	if s.renderer == nil || s.engine == nil {
		tr.warn(constants.StageRender, page, "recognition unavailable", nil)
		return nil
	}
	img, err := s.renderer.Render(ctx, data, page, s.opts.DPI)
	if err != nil {
		tr.warn(constants.StageRender, page, "render failed", err)
		return nil
	}
	if img == nil || img.Bounds().Empty() {
		tr.warn(constants.StageRender, page, "render produced an empty raster", nil)
		return nil
	}
	tr.info(constants.StageRender, page, "page rendered", "dpi", s.opts.DPI)
	return img
}

func (s *OCRStage) recognize(ctx context.Context, img image.Image, upscale, page int, label string, tr *trace) []ocr.Line {
	opts := s.opts.Preprocess
	opts.Upscale = upscale
	gray, rep := imaging.Preprocess(img, opts)
	for _, w := range rep.Warnings {
		tr.warn(constants.StagePreprocess, page, label+": "+w, nil)
	}

	lines, err := s.engine.Recognize(ctx, gray)
	if err != nil {
		tr.warn(constants.StageOCR, page, label+": recognition failed", err)
		return nil
	}
	s.logger.Debug("recognized", "page", page, "pass", label, "lines", len(lines), "skew", rep.Skew, "threshold", rep.Threshold)
	return lines
}

// MergeLines concatenates line groups in order, collapsing whitespace and
// keeping the first occurrence of each distinct text.
func MergeLines(groups ...[]ocr.Line) []ocr.Line {
	seen := make(map[string]struct{})
	var out []ocr.Line
	for _, g := range groups {
		for _, l := range g {
			l.Text = normalize.Spaces(l.Text)
			if l.Text == "" {
				continue
			}
			if _, ok := seen[l.Text]; ok {
				continue
			}
			seen[l.Text] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func joinLines(lines []ocr.Line) string {
	return strings.Join(ocr.Texts(lines), "\n")
}
