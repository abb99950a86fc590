// Package imaging prepares page rasters for text recognition.
package imaging

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Options controls Preprocess. Zero values select the defaults.
type Options struct {
	Upscale       int     // integer scale factor, default 3
	ClipLimit     float64 // CLAHE clip limit, default 3.0
	TilesX        int     // CLAHE grid columns, default 8
	TilesY        int     // CLAHE grid rows, default 8
	MinForeground int     // pixels required before deskewing, default 10
	FallbackLevel uint8   // binarization level when Otsu fails, default 150
}

func (o Options) withDefaults() Options {
	if o.Upscale <= 0 {
		o.Upscale = 3
	}
	if o.ClipLimit <= 0 {
		o.ClipLimit = 3.0
	}
	if o.TilesX <= 0 {
		o.TilesX = 8
	}
	if o.TilesY <= 0 {
		o.TilesY = 8
	}
	if o.MinForeground <= 0 {
		o.MinForeground = 10
	}
	if o.FallbackLevel == 0 {
		o.FallbackLevel = 150
	}
	return o
}

// Report describes what Preprocess did to an image.
type Report struct {
	Skew      float64  // degrees corrected, 0 when skipped
	Threshold uint8    // binarization level used
	Warnings  []string // steps that failed and were skipped
}

// Preprocess converts img to grayscale, equalizes local contrast, removes
// speckle, deskews, binarizes and upscales it. A failing step is skipped and
// reported; Preprocess itself never fails.
func Preprocess(img image.Image, opts Options) (*image.Gray, Report) {
	opts = opts.withDefaults()
	var rep Report

	g := Grayscale(img)
	step := func(name string, fn func() *image.Gray) {
		defer func() {
			if r := recover(); r != nil {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %v", name, r))
			}
		}()
		if out := fn(); out != nil {
			g = out
		}
	}

	step("clahe", func() *image.Gray { return CLAHE(g, opts.ClipLimit, opts.TilesX, opts.TilesY) })
	step("median", func() *image.Gray { return Median3(g) })
	step("deskew", func() *image.Gray {
		out, angle := Deskew(g, opts.MinForeground)
		rep.Skew = angle
		return out
	})
	step("threshold", func() *image.Gray {
		level, ok := Otsu(g)
		if !ok {
			level = opts.FallbackLevel
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("threshold: otsu undefined, using %d", level))
		}
		rep.Threshold = level
		return Binarize(g, level)
	})
	step("upscale", func() *image.Gray { return Upscale(g, opts.Upscale) })
	return g, rep
}

// Grayscale returns img as a single-channel image with origin (0, 0).
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// Upscale enlarges g by an integer factor with Catmull-Rom interpolation.
func Upscale(g *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return g
	}
	b := g.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), g, b, draw.Src, nil)
	return dst
}

// Crop returns the top band of img covering ratio of its height, at least
// minHeight pixels and at most the full image.
func Crop(img image.Image, ratio float64, minHeight int) image.Image {
	b := img.Bounds()
	h := int(float64(b.Dy()) * ratio)
	if h < minHeight {
		h = minHeight
	}
	if h > b.Dy() {
		h = b.Dy()
	}
	r := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h)
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
