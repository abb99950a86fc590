//go:build !fitz

package render

import (
	"errors"
	"log/slog"
)

// ErrFitzNotBuilt is returned when MuPDF support was not compiled in.
var ErrFitzNotBuilt = errors.New("fitz renderer not built; rebuild with -tags fitz")

func NewFitz(*slog.Logger) (Renderer, error) {
	return nil, ErrFitzNotBuilt
}
