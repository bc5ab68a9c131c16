package split

import (
	"math"
	"testing"

	"stereogrid/internal/components"
	"stereogrid/internal/frame"
	"stereogrid/pkg/geometry"
)

// mergedPairFrame draws two touching circles of the given diameter whose
// centers are exactly dNom apart (spec.md 8's P5 split-soundness setup) and
// returns the frame plus a Component descriptor covering their bounding box
// — constructed directly rather than through components.Extract, since this
// test exercises the split stage's own contract in isolation from the
// area/aspect/fill gates upstream of it.
func mergedPairFrame(dNom float64) (frame.Frame, components.Component, geometry.Point2D, geometry.Point2D) {
	r := dNom / 2
	margin := 10
	w := int(2*dNom) + 2*margin
	h := int(dNom) + 2*margin

	f := frame.New(w, h)
	c1 := geometry.Point2D{X: float64(margin) + r, Y: float64(h) / 2}
	c2 := geometry.Point2D{X: c1.X + dNom, Y: c1.Y}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx1, dy1 := float64(x)-c1.X, float64(y)-c1.Y
			dx2, dy2 := float64(x)-c2.X, float64(y)-c2.Y
			if dx1*dx1+dy1*dy1 <= r*r || dx2*dx2+dy2*dy2 <= r*r {
				f.Set(x, y, 255)
			}
		}
	}

	comp := components.Component{
		BBox:             geometry.RectInt{X: 0, Y: 0, Width: w, Height: h},
		Area:             int(2 * components.NominalArea(dNom)),
		IsSplitCandidate: true,
	}
	return f, comp, c1, c2
}

func TestPeaksSplitsTangentPair(t *testing.T) {
	const dNom = 78
	f, comp, c1, c2 := mergedPairFrame(dNom)

	seeds := Peaks(f, comp, 128, dNom)
	if len(seeds) != 2 {
		t.Fatalf("Peaks() returned %d seeds, want 2", len(seeds))
	}

	truth := []geometry.Point2D{c1, c2}
	for _, s := range seeds {
		best := math.Inf(1)
		for _, tp := range truth {
			if d := s.Center.Distance(tp); d < best {
				best = d
			}
		}
		if best > 1.0 {
			t.Errorf("seed %+v is %.2f px from nearest true center, want <= 1.0", s.Center, best)
		}
	}
}

func TestEstimateMultiplicityClamped(t *testing.T) {
	const dNom = 78
	nominalArea := components.NominalArea(dNom)

	small := components.Component{Area: int(nominalArea)}
	if got := estimateMultiplicity(small, dNom); got != 2 {
		t.Errorf("estimateMultiplicity(1x nominal area) = %d, want 2 (clamped minimum)", got)
	}

	huge := components.Component{Area: int(100 * nominalArea)}
	if got := estimateMultiplicity(huge, dNom); got != 25 {
		t.Errorf("estimateMultiplicity(100x nominal area) = %d, want 25 (clamped maximum)", got)
	}
}
