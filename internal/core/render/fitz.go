//go:build fitz

package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/gen2brain/go-fitz"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
)

// Fitz renders in-process with MuPDF.
type Fitz struct {
	logger *slog.Logger
}

func NewFitz(logger *slog.Logger) (Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fitz{logger: logger}, nil
}

func (f *Fitz) Render(ctx context.Context, data []byte, page, dpi int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 300
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, common.StageError(common.ErrRender, "open document", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, common.StageError(common.ErrRender, fmt.Sprintf("page %d out of range 1..%d", page, doc.NumPage()), nil)
	}
	img, err := doc.ImageDPI(page-1, float64(dpi))
	if err != nil {
		return nil, common.StageError(common.ErrRender, fmt.Sprintf("render page %d", page), err)
	}
	f.logger.Debug("page rendered", "page", page, "dpi", dpi, "renderer", "fitz")
	return img, nil
}
