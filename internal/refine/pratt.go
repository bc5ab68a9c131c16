package refine

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"stereogrid/pkg/geometry"
)

// CircleFit is the result of an algebraic circle fit.
type CircleFit struct {
	Center    geometry.Point2D
	Radius    float64
	ResidualRMS float64
}

// PrattFit fits a circle to a set of edge points using Pratt's algebraic
// method: it minimizes the algebraic distance sum{(x^2+y^2)+Dx+Ey+F}^2
// subject to the Pratt normalization D^2+E^2-4F = 4 (rather than Kasa's
// unconstrained least squares, which is known to bias the radius estimate
// on partial arcs). The normalization is enforced as a generalized
// eigenvalue problem, solved here as B^-1*M's ordinary eigendecomposition
// since B is a small fixed invertible matrix.
func PrattFit(points []geometry.Point2D) (CircleFit, error) {
	n := len(points)
	if n < 3 {
		return CircleFit{}, fmt.Errorf("pratt fit: need at least 3 points, got %d", n)
	}

	// Center the data at its centroid to condition the eigenproblem; the
	// fitted circle is shifted back at the end.
	centroid := geometry.Centroid(points)

	z := mat.NewDense(n, 4, nil)
	for i, p := range points {
		x := p.X - centroid.X
		y := p.Y - centroid.Y
		z.Set(i, 0, x*x+y*y)
		z.Set(i, 1, x)
		z.Set(i, 2, y)
		z.Set(i, 3, 1)
	}

	var m mat.Dense
	m.Mul(z.T(), z)

	b := mat.NewDense(4, 4, []float64{
		0, 0, 0, -2,
		0, 1, 0, 0,
		0, 0, 1, 0,
		-2, 0, 0, 0,
	})
	var bInv mat.Dense
	if err := bInv.Inverse(b); err != nil {
		return CircleFit{}, fmt.Errorf("pratt fit: singular constraint matrix: %w", err)
	}

	var c mat.Dense
	c.Mul(&bInv, &m)

	var eig mat.Eigen
	if ok := eig.Factorize(&c, mat.EigenRight); !ok {
		return CircleFit{}, fmt.Errorf("pratt fit: eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	// The correct root is the smallest non-negative real eigenvalue. B has
	// one negative eigenvalue, so exactly one root is negative; for points
	// lying exactly on a circle the correct root is zero up to rounding, so
	// roots are compared against a tolerance scaled to the spectrum.
	var scale float64
	for _, lambda := range values {
		scale = math.Max(scale, cmplx.Abs(lambda))
	}
	tol := 1e-9 * scale
	best := -1
	bestVal := math.Inf(1)
	for i, lambda := range values {
		if math.Abs(imag(lambda)) > tol {
			continue // discard non-real roots
		}
		re := real(lambda)
		if re < -tol {
			continue
		}
		if re < bestVal {
			bestVal = re
			best = i
		}
	}
	if best < 0 {
		return CircleFit{}, fmt.Errorf("pratt fit: no admissible eigenvalue")
	}

	a0 := real(vectors.At(0, best))
	a1 := real(vectors.At(1, best))
	a2 := real(vectors.At(2, best))
	a3 := real(vectors.At(3, best))
	if math.Abs(a0) < 1e-9 {
		return CircleFit{}, fmt.Errorf("pratt fit: degenerate (near-zero leading coefficient)")
	}

	cx := -a1 / (2 * a0)
	cy := -a2 / (2 * a0)
	r2 := (a1*a1 + a2*a2 - 4*a0*a3) / (4 * a0 * a0)
	if r2 <= 0 {
		return CircleFit{}, fmt.Errorf("pratt fit: non-positive radius^2")
	}
	radius := math.Sqrt(r2)

	center := geometry.Point2D{X: cx + centroid.X, Y: cy + centroid.Y}

	var sumSq float64
	for _, p := range points {
		d := p.Distance(center) - radius
		sumSq += d * d
	}
	rms := math.Sqrt(sumSq / float64(n))

	return CircleFit{Center: center, Radius: radius, ResidualRMS: rms}, nil
}
