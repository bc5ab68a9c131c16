package refine

import "math"

// Precomputed holds the per-configuration resources the refinement stage
// reuses across every seed in a frame: the ROI geometry, the polar sampling
// directions for the radial walk, and the edge-band / outer-ring masks used
// by the edge-confidence gate. Rebuilt only when d_nom changes (spec.md 4.4
// and 9 — "masks and kernels are immutable after construction").
type Precomputed struct {
	R0      float64 // nominal radius
	ROISide int     // full-res ROI side, ~= 2.4*d_nom, always odd

	// Polar sampling directions for the radial-fit walk (3b). Reused across
	// seeds — only the seed center changes, not the unit vectors.
	NAngles int
	CosA    []float64
	SinA    []float64
	MaxWalk float64 // outward walk limit, in full-res pixels

	// Edge-band / outer-ring masks, sized to the half-resolution gradient
	// ROI (ROISide/2 square), centered on the ROI center.
	HalfROISide int
	EdgeBand    []bool // true where 0.85*r0 <= dist <= 1.15*r0 (half-res dist*2)
	OuterRing   []bool // true where dist > 1.15*r0
}

// Build constructs the precomputed resources for a given nominal diameter.
func Build(dNom float64) Precomputed {
	r0 := dNom / 2
	side := int(math.Round(2.4 * dNom))
	if side%2 == 0 {
		side++
	}

	const nAngles = 72
	cosA := make([]float64, nAngles)
	sinA := make([]float64, nAngles)
	for i := 0; i < nAngles; i++ {
		a := float64(i) * 2 * math.Pi / float64(nAngles)
		cosA[i] = math.Cos(a)
		sinA[i] = math.Sin(a)
	}

	halfSide := side / 2
	center := float64(halfSide) / 2 // center of the half-res ROI, in half-res px

	edgeBand := make([]bool, halfSide*halfSide)
	outerRing := make([]bool, halfSide*halfSide)
	for y := 0; y < halfSide; y++ {
		for x := 0; x < halfSide; x++ {
			dx := (float64(x) - center) * 2 // back to full-res distance
			dy := (float64(y) - center) * 2
			d := math.Hypot(dx, dy)
			idx := y*halfSide + x
			if d >= 0.85*r0 && d <= 1.15*r0 {
				edgeBand[idx] = true
			} else if d > 1.15*r0 {
				outerRing[idx] = true
			}
		}
	}

	return Precomputed{
		R0:          r0,
		ROISide:     side,
		NAngles:     nAngles,
		CosA:        cosA,
		SinA:        sinA,
		MaxWalk:     1.3 * r0,
		HalfROISide: halfSide,
		EdgeBand:    edgeBand,
		OuterRing:   outerRing,
	}
}
