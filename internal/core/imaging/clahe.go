package imaging

import (
	"image"
	"math"
)

// CLAHE applies contrast-limited adaptive histogram equalization over a
// tilesX × tilesY grid. Each tile histogram is clipped at clip times the
// uniform bin height, the excess spread evenly, and pixels are mapped by
// bilinear interpolation of the four surrounding tile mappings.
func CLAHE(src *image.Gray, clip float64, tilesX, tilesY int) *image.Gray {
	src = zeroOrigin(src)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}
	if tilesX > w {
		tilesX = w
	}
	if tilesY > h {
		tilesY = h
	}
	tw := (w + tilesX - 1) / tilesX
	th := (h + tilesY - 1) / tilesY

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			luts[ty*tilesX+tx] = tileLUT(src, x0, y0, x1, y1, clip)
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		// Position relative to tile centers.
		fy := (float64(y)+0.5)/float64(th) - 0.5
		ty0 := clampInt(int(math.Floor(fy)), 0, tilesY-1)
		ty1 := clampInt(ty0+1, 0, tilesY-1)
		wy := clampFloat(fy-float64(ty0), 0, 1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tw) - 0.5
			tx0 := clampInt(int(math.Floor(fx)), 0, tilesX-1)
			tx1 := clampInt(tx0+1, 0, tilesX-1)
			wx := clampFloat(fx-float64(tx0), 0, 1)

			v := src.Pix[y*src.Stride+x]
			a := float64(luts[ty0*tilesX+tx0][v])
			c := float64(luts[ty0*tilesX+tx1][v])
			d := float64(luts[ty1*tilesX+tx0][v])
			e := float64(luts[ty1*tilesX+tx1][v])
			top := a*(1-wx) + c*wx
			bot := d*(1-wx) + e*wx
			dst.Pix[y*dst.Stride+x] = uint8(top*(1-wy) + bot*wy + 0.5)
		}
	}
	return dst
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clip float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := y * src.Stride
		for x := x0; x < x1; x++ {
			hist[src.Pix[row+x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	limit := int(clip * float64(area) / 256)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	bonus, rest := excess/256, excess%256
	for i := range hist {
		hist[i] += bonus
		if i < rest {
			hist[i]++
		}
	}

	var lut [256]uint8
	sum := 0
	scale := 255.0 / float64(area)
	for i := range hist {
		sum += hist[i]
		v := float64(sum) * scale
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v + 0.5)
	}
	return lut
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
