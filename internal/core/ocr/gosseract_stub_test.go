//go:build !gosseract

package ocr

import (
	"errors"
	"testing"
)

func TestNewGosseractNotBuilt(t *testing.T) {
	e, err := New(Config{Engine: "gosseract"}, nil)
	if !errors.Is(err, ErrEngineNotBuilt) {
		t.Fatalf("err = %v, want ErrEngineNotBuilt", err)
	}
	if e != nil {
		t.Fatal("expected nil engine")
	}
}
