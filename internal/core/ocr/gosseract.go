//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
)

// Gosseract runs libtesseract in-process. The client is created once and
// reused; it is not safe for concurrent use, so New always wraps it with
// Serialize.
type Gosseract struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client *gosseract.Client
}

// NewGosseract opens a libtesseract client with the configured languages.
func NewGosseract(cfg Config, logger *slog.Logger) (Engine, error) {
	cfg = cfg.withDefaults()
	c := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			c.Close()
			return nil, common.StageError(common.ErrRecognition, "set tessdata prefix", err)
		}
	}
	if err := c.SetLanguage(cfg.Languages...); err != nil {
		c.Close()
		return nil, common.StageError(common.ErrRecognition, "set languages", err)
	}
	if cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			c.Close()
			return nil, common.StageError(common.ErrRecognition, "set page seg mode", err)
		}
	}
	return &Gosseract{cfg: cfg, logger: logger, client: c}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, img *image.Gray) ([]Line, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.StageError(common.ErrRecognition, "encode image", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, common.StageError(common.ErrRecognition, "set image", err)
	}
	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, common.StageError(common.ErrRecognition, "recognize", err)
	}

	out := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.Join(strings.Fields(b.Word), " ")
		if text == "" || IsNoise(text) {
			continue
		}
		out = append(out, Line{
			Text:       text,
			Provenance: constants.ProvenanceOCR,
			Confidence: b.Confidence / 100.0,
			Scored:     true,
		})
	}
	g.logger.Debug("gosseract recognized", "lines", len(out))
	return out, nil
}

// Close releases the native client.
func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
