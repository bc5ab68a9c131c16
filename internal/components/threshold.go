package components

import "math"

// Histogram256 computes the 256-bin intensity histogram of a grayscale
// pixel buffer.
func Histogram256(pix []uint8) [256]int {
	var h [256]int
	for _, v := range pix {
		h[v]++
	}
	return h
}

// TriangleThreshold implements the triangle-method histogram split: the
// threshold maximizing perpendicular distance from the histogram curve to
// the line joining its peak to the far tail of the distribution. Computed
// once per engine instance (on the first frame) and cached thereafter, per
// spec.md 4.2 and 5.
func TriangleThreshold(hist [256]int) int {
	peak := 0
	for i := 1; i < 256; i++ {
		if hist[i] > hist[peak] {
			peak = i
		}
	}

	first, last := 0, 255
	for first < 256 && hist[first] == 0 {
		first++
	}
	for last >= 0 && hist[last] == 0 {
		last--
	}
	if first >= last {
		return peak
	}

	// The triangle's far corner is the tail farther from the peak — that
	// side of the histogram has the longer, shallower slope the algorithm
	// is designed to bisect.
	var x1, y1, x2, y2 float64
	x1, y1 = float64(peak), float64(hist[peak])
	if peak-first >= last-peak {
		x2, y2 = float64(first), float64(hist[first])
	} else {
		x2, y2 = float64(last), float64(hist[last])
	}

	lo, hi := int(math.Min(x1, x2)), int(math.Max(x1, x2))
	if lo == hi {
		return peak
	}

	// Perpendicular distance from each histogram bin to the chord (x1,y1)-(x2,y2).
	dx, dy := x2-x1, y2-y1
	norm := math.Hypot(dx, dy)
	if norm < 1e-9 {
		return peak
	}

	best := lo
	bestDist := -1.0
	for i := lo; i <= hi; i++ {
		px, py := float64(i), float64(hist[i])
		dist := math.Abs(dy*(px-x1)-dx*(py-y1)) / norm
		if dist > bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}
