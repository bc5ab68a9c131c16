package refine

import (
	"log/slog"
	"math"

	"stereogrid/internal/frame"
	"stereogrid/internal/split"
	"stereogrid/pkg/geometry"
)

// Params tunes the refinement gates from spec.md 4.4.
type Params struct {
	BrightCoreThreshold uint8   // mean-intensity gate for the fast path
	EdgeConfidenceMin   float64 // ec threshold separating fast/slow paths
	MinRayCoverage      float64 // fraction of rays that must yield an edge point
	MaxResidualFactor   float64 // residual RMS cutoff, as a factor of r0
	GradientFloorFactor float64 // gradient floor, as a factor of the ray's median gradient
}

// DefaultParams returns the constants named in spec.md 4.4.
func DefaultParams() Params {
	return Params{
		BrightCoreThreshold: 200,
		EdgeConfidenceMin:   2.0,
		MinRayCoverage:      0.6,
		MaxResidualFactor:   0.15,
		GradientFloorFactor: 0.8,
	}
}

// Seed refines one candidate into a sub-pixel center. original is the
// un-flattened frame (used for edge contrast and the radial fit);
// flattened is the illumination-corrected frame (used only for the
// brightness gate) — resolving the Open Question in spec.md 9 in favor of
// reading original-frame contrast for geometry and flattened intensity only
// for the brightness measurement.
func Seed(original, flattened frame.Frame, s split.Seed, pc Precomputed, p Params, log *slog.Logger) RefinedCenter {
	r := extractROI(original, s.Center.X, s.Center.Y, pc.ROISide)
	rFlat := extractROI(flattened, s.Center.X, s.Center.Y, pc.ROISide)

	cx, cy := float64(r.Side)/2, float64(r.Side)/2
	highConfidence := brightnessGate(rFlat, cx, cy, pc.R0, p.BrightCoreThreshold)
	viaEdgeGate := false

	if !highConfidence {
		ec := edgeConfidence(r, pc)
		if ec >= p.EdgeConfidenceMin {
			highConfidence = true
			viaEdgeGate = true
		}
	}

	toFull := func(local geometry.Point2D) geometry.Point2D {
		return geometry.Point2D{X: local.X + float64(r.OriginX), Y: local.Y + float64(r.OriginY)}
	}

	if highConfidence {
		tag := DtFast
		if viaEdgeGate {
			tag = DtEdge
		}
		if local, ok := dtFastRefine(r); ok {
			if log != nil {
				log.Debug("refine: fast path", "tag", tag.String(), "seed_x", s.Center.X, "seed_y", s.Center.Y)
			}
			return RefinedCenter{Center: toFull(local), Tag: tag}
		}
		if log != nil {
			log.Debug("refine: fast path failed, marking seed failed", "seed_x", s.Center.X, "seed_y", s.Center.Y)
		}
		return RefinedCenter{Center: s.Center, Tag: Failed}
	}

	if local, ok := radialFitRefine(r, pc, p); ok {
		if log != nil {
			log.Debug("refine: radial fit accepted", "seed_x", s.Center.X, "seed_y", s.Center.Y)
		}
		return RefinedCenter{Center: toFull(local), Tag: RadialFit}
	}

	if log != nil {
		log.Debug("refine: radial fit rejected, falling back to dt-edge", "seed_x", s.Center.X, "seed_y", s.Center.Y)
	}
	if local, ok := dtFastRefine(r); ok {
		return RefinedCenter{Center: toFull(local), Tag: DtEdge}
	}
	return RefinedCenter{Center: s.Center, Tag: Failed}
}

// brightnessGate computes the mean intensity within radius r0 of the ROI
// center on the flattened image; above threshold, the seed is classified
// high confidence (spec.md 4.4 step 1).
func brightnessGate(r roi, cx, cy, r0 float64, threshold uint8) bool {
	var sum, count int
	r0i := int(math.Ceil(r0))
	for dy := -r0i; dy <= r0i; dy++ {
		for dx := -r0i; dx <= r0i; dx++ {
			if float64(dx*dx+dy*dy) > r0*r0 {
				continue
			}
			sum += int(r.at(int(cx)+dx, int(cy)+dy))
			count++
		}
	}
	if count == 0 {
		return false
	}
	mean := sum / count
	return mean > int(threshold)
}

// edgeConfidence computes ec = p90(edge band gradient) - p90(outer ring
// gradient) on the half-resolution gradient ROI (spec.md 4.4 step 2).
func edgeConfidence(r roi, pc Precomputed) float64 {
	half := r.halfRes()
	mag := half.scharrMagnitude()
	if len(mag) != len(pc.EdgeBand) {
		return 0
	}
	edgeP90 := percentile(mag, pc.EdgeBand, 90)
	outerP90 := percentile(mag, pc.OuterRing, 90)
	return edgeP90 - outerP90
}
