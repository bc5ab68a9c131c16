package refine

import (
	"math"

	"stereogrid/pkg/geometry"
)

// radialFitRefine implements spec.md 4.4 step 3b: walk outward along each
// polar-grid ray from the seed, find the first half-maximum crossing with
// sufficient local gradient, fit Pratt's algebraic circle to the collected
// edge points, and reject on excess residual or ray coverage. Returns local
// (ROI-relative) coordinates.
func radialFitRefine(r roi, pc Precomputed, p Params) (geometry.Point2D, bool) {
	cx, cy := float64(r.Side)/2, float64(r.Side)/2

	grad := r.scharrMagnitude()
	pixF := make([]float64, len(r.Pix))
	for i, v := range r.Pix {
		pixF[i] = float64(v)
	}
	centerVal := diskMean(r, cx, cy, pc.R0*0.3)
	backgroundVal := ringMean(r, cx, cy, 1.15*pc.R0, float64(r.Side)/2-1)
	halfMax := (centerVal + backgroundVal) / 2

	var edgePoints []geometry.Point2D
	const stepSize = 0.5

	for i := 0; i < pc.NAngles; i++ {
		dx, dy := pc.CosA[i], pc.SinA[i]

		nSteps := int(pc.MaxWalk / stepSize)
		intensities := make([]float64, nSteps)
		gradients := make([]float64, nSteps)
		for s := 0; s < nSteps; s++ {
			step := float64(s) * stepSize
			px, py := cx+dx*step, cy+dy*step
			intensities[s] = bilinear(pixF, r.Side, r.Side, px, py)
			gradients[s] = bilinear(grad, r.Side, r.Side, px, py)
		}

		medianGrad := medianOf(gradients)
		floor := p.GradientFloorFactor * medianGrad

		// Determine direction of crossing: bright center -> dark background.
		crossed := false
		for s := 1; s < nSteps; s++ {
			prev, cur := intensities[s-1], intensities[s]
			if (prev >= halfMax) == (cur >= halfMax) {
				continue
			}
			if gradients[s] < floor {
				continue
			}
			frac := 0.0
			if prev != cur {
				frac = (halfMax - prev) / (cur - prev)
			}
			dist := (float64(s-1) + frac) * stepSize
			edgePoints = append(edgePoints, geometry.Point2D{X: cx + dx*dist, Y: cy + dy*dist})
			crossed = true
			break
		}
		_ = crossed
	}

	coverage := float64(len(edgePoints)) / float64(pc.NAngles)
	if coverage < p.MinRayCoverage {
		return geometry.Point2D{}, false
	}

	fit, err := PrattFit(edgePoints)
	if err != nil {
		return geometry.Point2D{}, false
	}
	if fit.ResidualRMS > p.MaxResidualFactor*pc.R0 {
		return geometry.Point2D{}, false
	}

	return fit.Center, true
}

func diskMean(r roi, cx, cy, radius float64) float64 {
	var sum float64
	var count int
	ri := int(math.Ceil(radius))
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) > radius*radius {
				continue
			}
			sum += float64(r.at(int(cx)+dx, int(cy)+dy))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func ringMean(r roi, cx, cy, innerR, outerR float64) float64 {
	var sum float64
	var count int
	oi := int(math.Ceil(outerR))
	for dy := -oi; dy <= oi; dy++ {
		for dx := -oi; dx <= oi; dx++ {
			d2 := float64(dx*dx + dy*dy)
			if d2 < innerR*innerR || d2 > outerR*outerR {
				continue
			}
			sum += float64(r.at(int(cx)+dx, int(cy)+dy))
			count++
		}
	}
	if count == 0 {
		return float64(r.at(0, 0))
	}
	return sum / float64(count)
}

func bilinear(buf []float64, w, h int, x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)
	v00 := at2D(buf, w, h, x0, y0)
	v10 := at2D(buf, w, h, x0+1, y0)
	v01 := at2D(buf, w, h, x0, y0+1)
	v11 := at2D(buf, w, h, x0+1, y0+1)
	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy
}

func at2D(buf []float64, w, h, x, y int) float64 {
	x = clampInt(x, 0, w-1)
	y = clampInt(y, 0, h-1)
	return buf[y*w+x]
}

func medianOf(v []float64) float64 {
	cp := make([]float64, len(v))
	copy(cp, v)
	sortFloats(cp)
	if len(cp) == 0 {
		return 0
	}
	return cp[len(cp)/2]
}
