package imaging

import (
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

type point struct{ x, y float64 }

// EstimateSkew returns the rotation, in degrees within (-45, 45], of the
// minimum-area rectangle enclosing every non-white pixel. n is the number of
// such pixels.
func EstimateSkew(src *image.Gray) (angle float64, n int) {
	src = zeroOrigin(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	// Row extremes are enough to build the convex hull.
	var pts []point
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		first, last := -1, -1
		for x, v := range row {
			if v < 255 {
				if first < 0 {
					first = x
				}
				last = x
				n++
			}
		}
		if first >= 0 {
			pts = append(pts, point{float64(first), float64(y)})
			if last != first {
				pts = append(pts, point{float64(last), float64(y)})
			}
		}
	}
	if len(pts) < 2 {
		return 0, n
	}
	return foldAngle(minAreaRectAngle(convexHull(pts))), n
}

// Deskew rotates src to cancel its estimated skew. Images with fewer than
// minForeground non-white pixels are returned unchanged.
func Deskew(src *image.Gray, minForeground int) (*image.Gray, float64) {
	angle, n := EstimateSkew(src)
	if n < minForeground || math.Abs(angle) < 0.05 {
		return src, 0
	}
	return Rotate(src, -angle), angle
}

// Rotate turns src by deg degrees about its center (positive is clockwise on
// screen, since y grows downward). Uncovered pixels are white.
func Rotate(src *image.Gray, deg float64) *image.Gray {
	src = zeroOrigin(src)
	b := src.Bounds()
	dst := image.NewGray(b)
	for i := range dst.Pix {
		dst.Pix[i] = 255
	}
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	s2d := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.CatmullRom.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

func foldAngle(deg float64) float64 {
	deg = math.Mod(deg, 90)
	if deg <= -45 {
		deg += 90
	} else if deg > 45 {
		deg -= 90
	}
	return deg
}

// convexHull is Andrew's monotone chain; the result is counter-clockwise
// without repeating the first point.
func convexHull(pts []point) []point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})
	cross := func(o, a, b point) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}
	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// minAreaRectAngle tries every hull edge as a rectangle side and returns the
// direction, in degrees, of the edge giving the smallest enclosing area.
func minAreaRectAngle(hull []point) float64 {
	if len(hull) == 2 {
		return math.Atan2(hull[1].y-hull[0].y, hull[1].x-hull[0].x) * 180 / math.Pi
	}
	bestArea := math.Inf(1)
	var best float64
	for i := range hull {
		p, q := hull[i], hull[(i+1)%len(hull)]
		dx, dy := q.x-p.x, q.y-p.y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l, dy/l
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, r := range hull {
			u := r.x*ux + r.y*uy
			v := -r.x*uy + r.y*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		if area := (maxU - minU) * (maxV - minV); area < bestArea {
			bestArea = area
			best = math.Atan2(dy, dx) * 180 / math.Pi
		}
	}
	return best
}
