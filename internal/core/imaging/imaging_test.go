package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func whiteGray(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	return g
}

// rotatedRect draws a filled w×h black rectangle centered in a white canvas,
// rotated by deg degrees.
func rotatedRect(size, w, h int, deg float64) *image.Gray {
	g := whiteGray(size, size)
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos
			if math.Abs(u) <= float64(w)/2 && math.Abs(v) <= float64(h)/2 {
				g.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return g
}

func TestEstimateSkew(t *testing.T) {
	for _, deg := range []float64{10, -7, 0} {
		g := rotatedRect(240, 140, 50, deg)
		got, n := EstimateSkew(g)
		if n < 10 {
			t.Fatalf("deg %v: foreground count %d", deg, n)
		}
		if math.Abs(got-deg) > 1.5 {
			t.Errorf("EstimateSkew = %.2f, want ≈ %.2f", got, deg)
		}
	}
}

func TestDeskewStraightens(t *testing.T) {
	g := rotatedRect(240, 140, 50, 10)
	out, angle := Deskew(g, 10)
	if math.Abs(angle-10) > 1.5 {
		t.Fatalf("corrected angle = %.2f", angle)
	}
	// Interpolation leaves gray fringes; binarize before measuring again.
	residual, _ := EstimateSkew(Binarize(out, 128))
	if math.Abs(residual) > 1.5 {
		t.Fatalf("residual skew after deskew = %.2f", residual)
	}
}

func TestDeskewSkipsSparseImages(t *testing.T) {
	g := whiteGray(50, 50)
	g.SetGray(10, 10, color.Gray{})
	g.SetGray(30, 40, color.Gray{})
	out, angle := Deskew(g, 10)
	if out != g || angle != 0 {
		t.Fatalf("sparse image must be returned untouched (angle %.2f)", angle)
	}
}

func TestOtsu(t *testing.T) {
	g := whiteGray(20, 20)
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			g.SetGray(x, y, color.Gray{Y: 40})
		}
	}
	level, ok := Otsu(g)
	if !ok || level < 40 || level >= 255 {
		t.Fatalf("Otsu = %d, %v", level, ok)
	}
	bin := Binarize(g, level)
	if bin.GrayAt(0, 0).Y != 0 || bin.GrayAt(0, 19).Y != 255 {
		t.Fatal("binarization did not split the two levels")
	}

	if _, ok := Otsu(whiteGray(5, 5)); ok {
		t.Fatal("uniform image has no Otsu split")
	}
}

func TestMedian3RemovesSpeckle(t *testing.T) {
	g := whiteGray(9, 9)
	g.SetGray(4, 4, color.Gray{})
	out := Median3(g)
	if out.Bounds() != g.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	if out.GrayAt(4, 4).Y != 255 {
		t.Fatal("isolated pixel survived the median filter")
	}

	// a solid dark block keeps its interior
	for y := 2; y < 7; y++ {
		for x := 2; x < 7; x++ {
			g.SetGray(x, y, color.Gray{Y: 10})
		}
	}
	if v := Median3(g).GrayAt(4, 4).Y; v != 10 {
		t.Fatalf("block interior = %d, want 10", v)
	}
}

func TestCLAHEKeepsWhite(t *testing.T) {
	g := rotatedRect(64, 30, 10, 0)
	out := CLAHE(g, 3.0, 8, 8)
	if out.Bounds() != g.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	if out.GrayAt(0, 0).Y != 255 {
		t.Fatalf("background = %d, want 255", out.GrayAt(0, 0).Y)
	}
	if out.GrayAt(32, 32).Y > 64 {
		t.Fatalf("foreground = %d, want dark", out.GrayAt(32, 32).Y)
	}
}

func TestPreprocess(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	for x := 10; x < 50; x++ {
		for y := 15; y < 25; y++ {
			src.Set(x, y, color.Black)
		}
	}
	out, rep := Preprocess(src, Options{Upscale: 2})
	if out.Bounds().Dx() != 120 || out.Bounds().Dy() != 80 {
		t.Fatalf("bounds = %v, want 120x80", out.Bounds())
	}
	if len(rep.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", rep.Warnings)
	}
}

func TestPreprocessBlankPage(t *testing.T) {
	out, rep := Preprocess(whiteGray(30, 30), Options{Upscale: 1})
	if out.Bounds().Dx() != 30 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if rep.Threshold != 150 || len(rep.Warnings) != 1 {
		t.Fatalf("blank page should fall back to the fixed threshold, got %+v", rep)
	}
}

func TestCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 1000))
	if h := Crop(img, 0.2, 30).Bounds().Dy(); h != 200 {
		t.Fatalf("crop height = %d, want 200", h)
	}
	if h := Crop(img, 0.01, 30).Bounds().Dy(); h != 30 {
		t.Fatalf("crop height = %d, want minimum 30", h)
	}
	if h := Crop(img, 2, 30).Bounds().Dy(); h != 1000 {
		t.Fatalf("crop height = %d, want full page", h)
	}
}
