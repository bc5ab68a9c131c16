// Package order implements spec.md 4.5: assigning refined circle centers to
// canonical grid positions by projecting them onto PCA-estimated axes.
package order

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"stereogrid/internal/refine"
	"stereogrid/pkg/geometry"
)

const (
	Rows = 4
	Cols = 10
	N    = Rows * Cols
)

// Sentinel errors mapped to spec.md 6's DetectionError codes by the
// orchestrating detect package.
var (
	ErrWrongCount           = errors.New("order: expected 40 refined centers")
	ErrOrientationAmbiguous = errors.New("order: minor/major eigenvalue ratio exceeds 0.5")
	ErrColumnLeak           = errors.New("order: column x' spread exceeds tolerance")
)

// Result is the canonically ordered output of the grid-ordering stage.
type Result struct {
	Centers [N]geometry.Point2D
	Tags    [N]refine.Tag
}

// Order assigns each of exactly 40 refined centers to a canonical grid
// index 4*col+row, per spec.md 4.5's axis-estimation, orientation, and
// partition rules.
func Order(refined []refine.RefinedCenter) (Result, error) {
	if len(refined) != N {
		return Result{}, ErrWrongCount
	}

	pts := make([]geometry.Point2D, N)
	for i, rc := range refined {
		pts[i] = rc.Center
	}
	centroid := geometry.Centroid(pts)

	eMajor, eMinor, ratio, err := estimateAxes(pts, centroid)
	if err != nil {
		return Result{}, err
	}
	if ratio > 0.5 {
		return Result{}, ErrOrientationAmbiguous
	}

	type projected struct {
		idx int
		xp  float64
		yp  float64
	}
	proj := make([]projected, N)
	for i, p := range pts {
		dx := p.X - centroid.X
		dy := p.Y - centroid.Y
		proj[i] = projected{
			idx: i,
			xp:  dx*eMajor.X + dy*eMajor.Y,
			yp:  dx*eMinor.X + dy*eMinor.Y,
		}
	}

	sort.Slice(proj, func(i, j int) bool { return proj[i].xp > proj[j].xp })

	colMeans := make([]float64, Cols)
	for col := 0; col < Cols; col++ {
		group := proj[col*Rows : col*Rows+Rows]
		var sum, lo, hi float64
		lo, hi = group[0].xp, group[0].xp
		for _, g := range group {
			sum += g.xp
			if g.xp < lo {
				lo = g.xp
			}
			if g.xp > hi {
				hi = g.xp
			}
		}
		colMeans[col] = sum / float64(Rows)
		spread := hi - lo
		if col > 0 {
			spacing := colMeans[col-1] - colMeans[col]
			if spacing > 0 && spread > 0.4*spacing {
				return Result{}, ErrColumnLeak
			}
		}
	}

	var result Result
	for col := 0; col < Cols; col++ {
		group := proj[col*Rows : col*Rows+Rows]
		sort.Slice(group, func(i, j int) bool { return group[i].yp < group[j].yp })
		for row := 0; row < Rows; row++ {
			out := col*Rows + row
			src := group[row].idx
			result.Centers[out] = refined[src].Center
			result.Tags[out] = refined[src].Tag
		}
	}

	return result, nil
}

// estimateAxes computes the 2x2 covariance matrix of the centered point
// cloud, its eigenvectors, and applies the sign-disambiguation convention
// from spec.md 4.5: e_major's x-component positive, e_minor's y-component
// positive. Returns the minor/major eigenvalue ratio.
func estimateAxes(pts []geometry.Point2D, centroid geometry.Point2D) (eMajor, eMinor geometry.Point2D, ratio float64, err error) {
	var sxx, sxy, syy float64
	n := float64(len(pts))
	for _, p := range pts {
		dx := p.X - centroid.X
		dy := p.Y - centroid.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	sxx /= n
	sxy /= n
	syy /= n

	cov := mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return geometry.Point2D{}, geometry.Point2D{}, 0, errors.New("order: covariance eigendecomposition failed")
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// gonum returns eigenvalues ascending.
	minorVal, majorVal := values[0], values[1]
	minorVec := geometry.Point2D{X: vectors.At(0, 0), Y: vectors.At(1, 0)}
	majorVec := geometry.Point2D{X: vectors.At(0, 1), Y: vectors.At(1, 1)}

	if majorVec.X < 0 {
		majorVec.X, majorVec.Y = -majorVec.X, -majorVec.Y
	}
	if minorVec.Y < 0 {
		minorVec.X, minorVec.Y = -minorVec.X, -minorVec.Y
	}

	if majorVal <= 0 {
		return geometry.Point2D{}, geometry.Point2D{}, 0, errors.New("order: non-positive major eigenvalue")
	}

	return majorVec, minorVec, math.Abs(minorVal / majorVal), nil
}
