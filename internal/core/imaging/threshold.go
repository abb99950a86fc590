package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// Median3 replaces every pixel by the median of its 3×3 neighbourhood.
func Median3(src *image.Gray) *image.Gray {
	return Grayscale(effect.Median(src, 1))
}

// Otsu returns the global threshold maximizing between-class variance. ok is
// false when the image has a single gray level and no split exists.
func Otsu(src *image.Gray) (level uint8, ok bool) {
	var hist [256]int
	total := 0
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[(y-src.Rect.Min.Y)*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
			total++
		}
	}
	if total == 0 {
		return 0, false
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}
	var sumB, wB float64
	var best float64 = -1
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = uint8(t)
		}
	}
	if best <= 0 {
		return 0, false
	}
	return level, true
}

// Binarize maps pixels above level to white and the rest to black.
func Binarize(src *image.Gray, level uint8) *image.Gray {
	src = zeroOrigin(src)
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		if v > level {
			dst.Pix[i] = 255
		}
	}
	return dst
}

// zeroOrigin returns src with Rect.Min at (0, 0) and Stride equal to its
// width, copying only when needed.
func zeroOrigin(src *image.Gray) *image.Gray {
	r := src.Rect
	if r.Min == (image.Point{}) && src.Stride == r.Dx() {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[y*src.Stride:y*src.Stride+r.Dx()])
	}
	return dst
}
