package refine

import (
	"math"

	"stereogrid/internal/frame"
)

// roi is a square sub-buffer extracted from a frame, with its origin in the
// parent frame's coordinate system (so local results can be translated back
// to full-resolution coordinates, per spec.md 4.4 "numerical notes").
type roi struct {
	OriginX, OriginY int
	Side             int
	Pix              []uint8
}

// extractROI pulls a side x side square centered on (cx, cy) from f,
// clamping reads at the frame border (replicating edge pixels) so seeds
// near the image boundary still get a full ROI.
func extractROI(f frame.Frame, cx, cy float64, side int) roi {
	ox := int(cx) - side/2
	oy := int(cy) - side/2
	pix := make([]uint8, side*side)
	for y := 0; y < side; y++ {
		fy := clampInt(oy+y, 0, f.Height-1)
		for x := 0; x < side; x++ {
			fx := clampInt(ox+x, 0, f.Width-1)
			pix[y*side+x] = f.At(fx, fy)
		}
	}
	return roi{OriginX: ox, OriginY: oy, Side: side, Pix: pix}
}

func (r roi) at(x, y int) uint8 {
	x = clampInt(x, 0, r.Side-1)
	y = clampInt(y, 0, r.Side-1)
	return r.Pix[y*r.Side+x]
}

// halfRes downsamples the ROI by 2x via 2x2 block averaging.
func (r roi) halfRes() roi {
	half := r.Side / 2
	pix := make([]uint8, half*half)
	for y := 0; y < half; y++ {
		for x := 0; x < half; x++ {
			sum := int(r.at(2*x, 2*y)) + int(r.at(2*x+1, 2*y)) +
				int(r.at(2*x, 2*y+1)) + int(r.at(2*x+1, 2*y+1))
			pix[y*half+x] = uint8(sum / 4)
		}
	}
	return roi{OriginX: r.OriginX, OriginY: r.OriginY, Side: half, Pix: pix}
}

// scharrMagnitude computes the Scharr gradient magnitude at every pixel of
// the ROI using the standard 3x3 Scharr kernels, hand-rolled over the raw
// buffer rather than a full-frame gocv filter call — the ROI is small (under
// two hundred pixels a side) so the convolution cost is negligible next to
// the dispatch it enables.
func (r roi) scharrMagnitude() []float64 {
	gx := [3][3]int{{3, 0, -3}, {10, 0, -10}, {3, 0, -3}}
	gy := [3][3]int{{3, 10, 3}, {0, 0, 0}, {-3, -10, -3}}

	mag := make([]float64, r.Side*r.Side)
	for y := 0; y < r.Side; y++ {
		for x := 0; x < r.Side; x++ {
			var sx, sy int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := int(r.at(x+kx, y+ky))
					sx += gx[ky+1][kx+1] * v
					sy += gy[ky+1][kx+1] * v
				}
			}
			mag[y*r.Side+x] = hypotInt(sx, sy)
		}
	}
	return mag
}

func hypotInt(a, b int) float64 {
	fa, fb := float64(a), float64(b)
	return math.Sqrt(fa*fa + fb*fb)
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

// percentile returns the p-th percentile (0-100) of values selected by mask:
// the element at index floor(p/100*(n-1)) of the sorted subset, without
// interpolation. Returns 0 if mask selects nothing.
func percentile(values []float64, mask []bool, p float64) float64 {
	var subset []float64
	for i, v := range values {
		if mask[i] {
			subset = append(subset, v)
		}
	}
	if len(subset) == 0 {
		return 0
	}
	sortFloats(subset)
	idx := int(p / 100 * float64(len(subset)-1))
	return subset[idx]
}

func sortFloats(v []float64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}
