package frame

import "math"

// Line draws an anti-aliased line between two cells (Xiaolin Wu). Each
// touched cell is blended with its coverage fraction; coordinates that
// rasterize outside the frame are discarded, never written.
func (f *Frame) Line(r1, c1, r2, c2 int, col Color) {
	x0, y0 := float64(c1), float64(r1)
	x1, y1 := float64(c2), float64(r2)

	steep := math.Abs(y1-y0) > math.Abs(x1-x0)
	if steep {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	if x0 > x1 {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}

	dx := x1 - x0
	dy := y1 - y0
	grad := 1.0
	if dx != 0 {
		grad = dy / dx
	}

	plot := func(x, y int, cov float64) {
		if steep {
			f.Blend(x, y, col, float32(cov))
		} else {
			f.Blend(y, x, col, float32(cov))
		}
	}

	// first endpoint
	xend := math.Round(x0)
	yend := y0 + grad*(xend-x0)
	xgap := rfpart(x0 + 0.5)
	xpx1 := int(xend)
	plot(xpx1, int(math.Floor(yend)), rfpart(yend)*xgap)
	plot(xpx1, int(math.Floor(yend))+1, fpart(yend)*xgap)
	intery := yend + grad

	// second endpoint
	xend = math.Round(x1)
	yend = y1 + grad*(xend-x1)
	xgap = fpart(x1 + 0.5)
	xpx2 := int(xend)
	plot(xpx2, int(math.Floor(yend)), rfpart(yend)*xgap)
	plot(xpx2, int(math.Floor(yend))+1, fpart(yend)*xgap)

	for x := xpx1 + 1; x < xpx2; x++ {
		plot(x, int(math.Floor(intery)), rfpart(intery))
		plot(x, int(math.Floor(intery))+1, fpart(intery))
		intery += grad
	}
}

// Circle draws an anti-aliased circle centered on (row, col). Coverage is
// computed analytically from the distance to the ideal circle: filled
// circles ramp from full coverage inside the radius to zero just outside,
// outlines cover only the one-cell band around the perimeter. Cells
// outside the frame are discarded.
func (f *Frame) Circle(row, col int, radius float64, c Color, fill bool) {
	if radius < 0 {
		return
	}
	rmin := int(math.Floor(float64(row) - radius - 1))
	rmax := int(math.Ceil(float64(row) + radius + 1))
	cmin := int(math.Floor(float64(col) - radius - 1))
	cmax := int(math.Ceil(float64(col) + radius + 1))

	for r := rmin; r <= rmax; r++ {
		for cc := cmin; cc <= cmax; cc++ {
			dist := math.Hypot(float64(r-row), float64(cc-col))
			var cov float64
			if fill {
				cov = radius - dist + 0.5
			} else {
				cov = 1 - math.Abs(dist-radius)
			}
			if cov <= 0 {
				continue
			}
			if cov > 1 {
				cov = 1
			}
			f.Blend(r, cc, c, float32(cov))
		}
	}
}

func fpart(x float64) float64 { return x - math.Floor(x) }

func rfpart(x float64) float64 { return 1 - fpart(x) }
