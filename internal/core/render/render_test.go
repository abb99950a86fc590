package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
)

// pngRunner imitates pdftoppm by writing a PNG to "<prefix>.png".
type pngRunner struct {
	args []string
	fail bool
}

func (r *pngRunner) Run(_ context.Context, _ string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	r.args = args
	if r.fail {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	img.SetGray(3, 3, color.Gray{Y: 200})
	f, err := os.Create(prefix + ".png")
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return nil, nil, png.Encode(f, img)
}

func TestPopplerRender(t *testing.T) {
	r := &pngRunner{}
	p := NewPoppler("", t.TempDir(), r, nil)

	img, err := p.Render(context.Background(), []byte("%PDF-1.4"), 3, 150)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	joined := strings.Join(r.args, " ")
	for _, want := range []string{"-f 3", "-l 3", "-r 150", "-png", "-singlefile"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}

func TestPopplerFailureIsRenderError(t *testing.T) {
	p := NewPoppler("", t.TempDir(), &pngRunner{fail: true}, nil)
	_, err := p.Render(context.Background(), []byte("x"), 1, 300)
	if !errors.Is(err, common.ErrRender) {
		t.Fatalf("err = %v, want ErrRender", err)
	}
	if _, err := p.Render(context.Background(), []byte("x"), 0, 300); !errors.Is(err, common.ErrRender) {
		t.Fatalf("page 0: err = %v, want ErrRender", err)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New(Config{Renderer: "ghostscript"}, nil); !errors.Is(err, ErrUnknownRenderer) {
		t.Fatalf("err = %v", err)
	}
	if r, err := New(Config{}, nil); err != nil || r == nil {
		t.Fatalf("default renderer: %v", err)
	}
}
