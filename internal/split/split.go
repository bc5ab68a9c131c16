// Package split implements stage 3 of the detection pipeline: breaking a
// merged connected component into individual circle seeds via distance-
// transform peak picking, generalized from a single-peak-per-mask search to
// a top-k-peaks-per-component search.
package split

import (
	"math"
	"sort"

	"gocv.io/x/gocv"

	"stereogrid/internal/components"
	"stereogrid/internal/frame"
	"stereogrid/pkg/geometry"
)

// Seed is a candidate circle location handed to the refinement stage.
type Seed struct {
	Center         geometry.Point2D
	ExpectedRadius float64
}

// Peaks extracts up to kEst seed candidates from a split-candidate
// component's binary mask, per spec.md 4.3:
//  1. L2 distance transform on the component mask.
//  2. Zero a 1px border to suppress boundary artifacts.
//  3. Non-max suppression with radius 0.4*dNom.
//  4. Take the top kEst peaks by distance value, breaking ties by
//     lexicographically smaller coordinates.
//  5. Discard any peak closer than 0.6*dNom to an already-accepted peak.
func Peaks(f frame.Frame, comp components.Component, threshold int, dNom float64) []Seed {
	kEst := estimateMultiplicity(comp, dNom)

	mask := maskFromComponent(f, comp, threshold)
	defer mask.Close()

	dist := gocv.NewMat()
	defer dist.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.DistanceTransform(mask, &dist, &labels, gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	rows, cols := dist.Rows(), dist.Cols()
	zeroBorder(&dist, rows, cols)

	type candidate struct {
		x, y int
		val  float32
	}
	var all []candidate
	nmsR := int(math.Round(0.4 * dNom))
	if nmsR < 1 {
		nmsR = 1
	}

	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			v := dist.GetFloatAt(y, x)
			if v <= 0 {
				continue
			}
			if isStrictLocalMax(dist, x, y, nmsR, rows, cols) {
				all = append(all, candidate{x: x, y: y, val: v})
			}
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].val != all[j].val {
			return all[i].val > all[j].val
		}
		if all[i].y != all[j].y {
			return all[i].y < all[j].y
		}
		return all[i].x < all[j].x
	})

	minSep := 0.6 * dNom
	var seeds []Seed
	for _, c := range all {
		if len(seeds) >= kEst {
			break
		}
		center := geometry.Point2D{
			X: float64(comp.BBox.X + c.x - maskPad),
			Y: float64(comp.BBox.Y + c.y - maskPad),
		}
		tooClose := false
		for _, s := range seeds {
			if s.Center.Distance(center) < minSep {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		seeds = append(seeds, Seed{Center: center, ExpectedRadius: dNom / 2})
	}
	return seeds
}

// estimateMultiplicity computes k_est = round(area / nominalArea), clamped
// to [2, 25], per spec.md 4.3.
func estimateMultiplicity(comp components.Component, dNom float64) int {
	nominalArea := components.NominalArea(dNom)
	k := int(math.Round(float64(comp.Area) / nominalArea))
	if k < 2 {
		k = 2
	}
	if k > 25 {
		k = 25
	}
	return k
}

const maskPad = 1

// maskFromComponent rebuilds a binary mask scoped to the component's
// bounding box (plus a maskPad margin for the border-zeroing step) by
// re-thresholding the frame and keeping only this component's footprint.
func maskFromComponent(f frame.Frame, comp components.Component, threshold int) gocv.Mat {
	w, h := comp.BBox.Width+2*maskPad, comp.BBox.Height+2*maskPad
	mask := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := comp.BBox.X+x-maskPad, comp.BBox.Y+y-maskPad
			if f.At(fx, fy) >= uint8(threshold) {
				mask.SetUCharAt(y, x, 255)
			}
		}
	}
	return mask
}

func zeroBorder(m *gocv.Mat, rows, cols int) {
	for x := 0; x < cols; x++ {
		m.SetFloatAt(0, x, 0)
		m.SetFloatAt(rows-1, x, 0)
	}
	for y := 0; y < rows; y++ {
		m.SetFloatAt(y, 0, 0)
		m.SetFloatAt(y, cols-1, 0)
	}
}

// isStrictLocalMax reports whether (x,y) is the strict maximum distance
// value within a (2r+1)x(2r+1) square neighborhood.
func isStrictLocalMax(dist gocv.Mat, x, y, r, rows, cols int) bool {
	v := dist.GetFloatAt(y, x)
	for dy := -r; dy <= r; dy++ {
		ny := y + dy
		if ny < 0 || ny >= rows {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := x + dx
			if nx < 0 || nx >= cols {
				continue
			}
			if dist.GetFloatAt(ny, nx) >= v {
				return false
			}
		}
	}
	return true
}
