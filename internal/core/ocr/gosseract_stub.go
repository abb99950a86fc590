//go:build !gosseract

package ocr

import (
	"errors"
	"log/slog"
)

// ErrEngineNotBuilt is returned when the in-process engine was not compiled
// in. Rebuild with -tags gosseract, or use the tesseract CLI engine.
var ErrEngineNotBuilt = errors.New("gosseract engine not built; rebuild with -tags gosseract")

// NewGosseract always fails in builds without the gosseract tag.
func NewGosseract(Config, *slog.Logger) (Engine, error) {
	return nil, ErrEngineNotBuilt
}
