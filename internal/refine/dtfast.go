package refine

import (
	"math"

	"stereogrid/pkg/geometry"
)

// dtFastRefine implements spec.md 4.4 step 3a: threshold the ROI at its own
// Otsu split, run an L2 distance transform, smooth with a 3x3 averaging
// kernel, take the argmax, and refine to sub-pixel with an independent
// parabolic fit on each axis across the argmax and its 4-neighbors.
// Returns local (ROI-relative) coordinates.
func dtFastRefine(r roi) (geometry.Point2D, bool) {
	thresh := otsuThreshold(r.Pix)

	mask := make([]bool, r.Side*r.Side)
	for i, v := range r.Pix {
		mask[i] = v >= thresh
	}

	dist := distanceTransformL2(mask, r.Side, r.Side)
	smoothed := smooth3x3(dist, r.Side, r.Side)

	ax, ay := argmax2D(smoothed, r.Side, r.Side)
	if ax < 0 {
		return geometry.Point2D{}, false
	}

	sx := parabolicSubpixel(smoothed, r.Side, r.Side, ax, ay, true)
	sy := parabolicSubpixel(smoothed, r.Side, r.Side, ax, ay, false)

	return geometry.Point2D{X: sx, Y: sy}, true
}

// otsuThreshold computes Otsu's between-class-variance-maximizing split on
// an 8-bit pixel buffer — the same class of histogram-threshold technique
// as components.TriangleThreshold, applied per-ROI rather than per-frame.
func otsuThreshold(pix []uint8) uint8 {
	var hist [256]int
	for _, v := range pix {
		hist[v]++
	}
	total := len(pix)
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var sumB, wB float64
	bestVar := -1.0
	bestT := 0
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
		betweenVar := wB * wF * (mB - mF) * (mB - mF)
		if betweenVar > bestVar {
			bestVar = betweenVar
			bestT = t
		}
	}
	return uint8(bestT)
}

// distanceTransformL2 computes an approximate Euclidean distance transform
// (distance to nearest zero pixel) via a two-pass chamfer scan, adequate for
// the small ROI sizes refinement operates on.
func distanceTransformL2(mask []bool, w, h int) []float64 {
	const inf = 1e9
	dist := make([]float64, w*h)
	for i, v := range mask {
		if v {
			dist[i] = inf
		}
	}

	// Forward pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if dist[idx] == 0 {
				continue
			}
			best := dist[idx]
			if x > 0 {
				best = math.Min(best, dist[idx-1]+1)
			}
			if y > 0 {
				best = math.Min(best, dist[idx-w]+1)
			}
			if x > 0 && y > 0 {
				best = math.Min(best, dist[idx-w-1]+math.Sqrt2)
			}
			if x < w-1 && y > 0 {
				best = math.Min(best, dist[idx-w+1]+math.Sqrt2)
			}
			dist[idx] = best
		}
	}
	// Backward pass.
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			idx := y*w + x
			if dist[idx] == 0 {
				continue
			}
			best := dist[idx]
			if x < w-1 {
				best = math.Min(best, dist[idx+1]+1)
			}
			if y < h-1 {
				best = math.Min(best, dist[idx+w]+1)
			}
			if x < w-1 && y < h-1 {
				best = math.Min(best, dist[idx+w+1]+math.Sqrt2)
			}
			if x > 0 && y < h-1 {
				best = math.Min(best, dist[idx+w-1]+math.Sqrt2)
			}
			dist[idx] = best
		}
	}
	return dist
}

func smooth3x3(v []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			var count int
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					sum += v[ny*w+nx]
					count++
				}
			}
			out[y*w+x] = sum / float64(count)
		}
	}
	return out
}

func argmax2D(v []float64, w, h int) (int, int) {
	best := -1
	bestVal := -1.0
	for i, val := range v {
		if val > bestVal {
			bestVal = val
			best = i
		}
	}
	if best < 0 {
		return -1, -1
	}
	return best % w, best / w
}

// parabolicSubpixel fits a parabola through the argmax pixel and its two
// neighbors along one axis, per spec.md 4.4 "numerical notes": denominators
// smaller than 1e-6 fall back to the integer argmax.
func parabolicSubpixel(v []float64, w, h, ax, ay int, alongX bool) float64 {
	var y0, y1, y2 float64
	var base float64
	if alongX {
		base = float64(ax)
		if ax <= 0 || ax >= w-1 {
			return base
		}
		y0, y1, y2 = v[ay*w+ax-1], v[ay*w+ax], v[ay*w+ax+1]
	} else {
		base = float64(ay)
		if ay <= 0 || ay >= h-1 {
			return base
		}
		y0, y1, y2 = v[(ay-1)*w+ax], v[ay*w+ax], v[(ay+1)*w+ax]
	}

	denom := y0 - 2*y1 + y2
	if math.Abs(denom) < 1e-6 {
		return base
	}
	offset := 0.5 * (y0 - y2) / denom
	// Guard against a pathological fit landing outside the 3-sample window.
	if offset < -1 || offset > 1 {
		return base
	}
	return base + offset
}
