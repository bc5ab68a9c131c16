// Package components implements stage 2 of the detection pipeline:
// binarization, 4-connected component labeling, and area/shape gating.
package components

import (
	"math"

	"gocv.io/x/gocv"

	"stereogrid/internal/frame"
	"stereogrid/pkg/geometry"
)

// Gates are the area/aspect/fill acceptance bounds from spec.md 4.2.
type Gates struct {
	AreaMin, AreaMax     int
	AspectMin, AspectMax float64
	FillMin, FillMax     float64
	// SplitAreaFactor*nominalArea is the area above which an accepted
	// component is routed to ROI splitting instead of emitted as a seed.
	SplitAreaFactor float64
}

// DefaultGates returns the permissive gates from spec.md 4.2.
func DefaultGates() Gates {
	return Gates{
		AreaMin: 1600, AreaMax: 14000,
		AspectMin: 0.6, AspectMax: 1.7,
		FillMin: 0.45, FillMax: 0.95,
		SplitAreaFactor: 1.4,
	}
}

// Component is a single connected component surviving the gate, before ROI
// splitting.
type Component struct {
	BBox     geometry.RectInt
	Area     int
	Centroid geometry.Point2D
	Label    int
	// IsSplitCandidate is true when the component's area exceeds
	// SplitAreaFactor times the nominal single-circle area; such
	// components are routed to the split stage instead of becoming seeds.
	IsSplitCandidate bool
}

// NominalArea returns pi*(dNom/2)^2, the expected area of one circle.
func NominalArea(dNom float64) float64 {
	r := dNom / 2
	return math.Pi * r * r
}

// Extract binarizes the frame at the given threshold, labels 4-connected
// components, and applies the area/aspect/fill gates. 4-connectivity is
// used (rather than 8) to reduce diagonal adhesion between adjacent
// circles, per spec.md 4.2.
func Extract(f frame.Frame, threshold int, gates Gates, dNom float64) []Component {
	src := f.ToMat()
	defer src.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(src, &binary, float32(threshold), 255, gocv.ThresholdBinary)

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(binary, &labels, &stats, &centroids,
		4, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	nominalArea := NominalArea(dNom)
	splitArea := gates.SplitAreaFactor * nominalArea

	var out []Component
	// Label 0 is the background component; skip it.
	for lbl := 1; lbl < n; lbl++ {
		area := int(stats.GetIntAt(lbl, int(gocv.CC_STAT_AREA)))
		bw := int(stats.GetIntAt(lbl, int(gocv.CC_STAT_WIDTH)))
		bh := int(stats.GetIntAt(lbl, int(gocv.CC_STAT_HEIGHT)))
		bx := int(stats.GetIntAt(lbl, int(gocv.CC_STAT_LEFT)))
		by := int(stats.GetIntAt(lbl, int(gocv.CC_STAT_TOP)))

		if area < gates.AreaMin || area > gates.AreaMax {
			continue
		}
		if bw == 0 || bh == 0 {
			continue
		}
		aspect := float64(bw) / float64(bh)
		if aspect < gates.AspectMin || aspect > gates.AspectMax {
			continue
		}
		fill := float64(area) / float64(bw*bh)
		if fill < gates.FillMin || fill > gates.FillMax {
			continue
		}

		cx := centroids.GetDoubleAt(lbl, 0)
		cy := centroids.GetDoubleAt(lbl, 1)

		out = append(out, Component{
			BBox:             geometry.RectInt{X: bx, Y: by, Width: bw, Height: bh},
			Area:             area,
			Centroid:         geometry.Point2D{X: cx, Y: cy},
			Label:            lbl,
			IsSplitCandidate: float64(area) > splitArea,
		})
	}
	return out
}

// EstimatedSeedCount sums the expected seed yield of a gated component set:
// 1 per plain component, k_est (spec.md 4.3) per split candidate. Used to
// decide whether the t_hi pass produced enough candidates or the t_lo retry
// (spec.md 4.2) is needed.
func EstimatedSeedCount(comps []Component, dNom float64) int {
	nominalArea := NominalArea(dNom)
	total := 0
	for _, c := range comps {
		if !c.IsSplitCandidate {
			total++
			continue
		}
		k := int(math.Round(float64(c.Area) / nominalArea))
		if k < 2 {
			k = 2
		}
		if k > 25 {
			k = 25
		}
		total += k
	}
	return total
}
