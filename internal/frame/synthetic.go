package frame

import (
	"math"
	"math/rand"

	"stereogrid/pkg/geometry"
)

// GridSpec describes the calibration target geometry used to synthesize a
// test frame: a grid_rows x grid_cols asymmetric circle grid (default 4x10),
// where odd rows are offset by half a column pitch.
type GridSpec struct {
	Rows, Cols int
	PitchX     float64 // column-to-column spacing, px
	PitchY     float64 // row-to-row spacing, px
	Diameter   float64 // circle diameter, px
	CenterX    float64 // grid centroid, image coords
	CenterY    float64
	RotationDeg float64 // clockwise rotation about (CenterX, CenterY)
}

// DefaultGridSpec returns a 4x10 asymmetric grid sized for a 2448x2048 sensor
// with a 78px nominal diameter, centered on the frame.
func DefaultGridSpec(frameW, frameH int) GridSpec {
	return GridSpec{
		Rows: 4, Cols: 10,
		PitchX:   120,
		PitchY:   120,
		Diameter: 78,
		CenterX:  float64(frameW) / 2,
		CenterY:  float64(frameH) / 2,
	}
}

// Points returns the 40 (or rows*cols) ground-truth circle centers in image
// coordinates, laid out row-major (not the canonical detection order — the
// detection engine's ordering stage is what test callers independently
// verify against this ground truth).
func (g GridSpec) Points() []geometry.Point2D {
	pts := make([]geometry.Point2D, 0, g.Rows*g.Cols)

	// Unrotated grid, centered at the origin.
	gridW := float64(g.Cols-1)*g.PitchX + g.PitchX/2
	gridH := float64(g.Rows-1) * g.PitchY
	originX := -gridW / 2
	originY := -gridH / 2

	for r := 0; r < g.Rows; r++ {
		rowOffset := 0.0
		if r%2 == 1 {
			rowOffset = g.PitchX / 2
		}
		for c := 0; c < g.Cols; c++ {
			local := geometry.Point2D{
				X: originX + rowOffset + float64(c)*g.PitchX,
				Y: originY + float64(r)*g.PitchY,
			}
			rotated := geometry.RotateAround(local, geometry.Point2D{}, g.RotationDeg*math.Pi/180)
			pts = append(pts, geometry.Point2D{X: rotated.X + g.CenterX, Y: rotated.Y + g.CenterY})
		}
	}
	return pts
}

// RenderOptions controls the optical nuisances layered onto a synthetic
// frame, matching the literal end-to-end scenarios in spec.md section 8.
type RenderOptions struct {
	Background  uint8   // flat background intensity
	Foreground  uint8   // circle intensity
	GradientAdd float64 // additive linear gradient, 0 at x=0 to GradientAdd at x=width
	NoiseSigma  float64 // gaussian pixel noise stddev
	Seed        int64

	// MergeTangentPair, when true, drags the point at TangentPairIdx+1
	// along the line to its neighbor until the two circles are exactly
	// diameter apart (touching, not overlapping) — spec.md 8 scenario 3's
	// "two adjacent merged circles" test. TangentPairIdx is only consulted
	// when this is set, so the zero value of RenderOptions renders a plain
	// grid.
	MergeTangentPair bool
	TangentPairIdx   int
}

// Render draws a GridSpec onto a new frame using anti-aliased circles (4x
// supersampled coverage, matching the resolution the refinement stage must
// recover to sub-pixel accuracy).
func Render(width, height int, spec GridSpec, opts RenderOptions) Frame {
	f := New(width, height)
	bg := float64(opts.Background)
	fg := float64(opts.Foreground)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := bg
			if opts.GradientAdd != 0 {
				v += opts.GradientAdd * float64(x) / float64(width)
			}
			f.Set(x, y, clampByte(v))
		}
	}

	pts := spec.Points()
	if opts.MergeTangentPair && opts.TangentPairIdx >= 0 && opts.TangentPairIdx+1 < len(pts) {
		pts = mergeTangentPair(pts, opts.TangentPairIdx, spec.Diameter)
	}

	r := spec.Diameter / 2
	for _, p := range pts {
		rasterCircle(f, p, r, fg, opts.GradientAdd, width)
	}

	if opts.NoiseSigma > 0 {
		addGaussianNoise(f, opts.NoiseSigma, opts.Seed)
	}

	return f
}

// mergeTangentPair drags pts[idx+1] along the line from pts[idx] until the
// two centers are exactly diameter apart, so the rendered circles touch at
// a single point rather than overlapping or standing apart.
func mergeTangentPair(pts []geometry.Point2D, idx int, diameter float64) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	copy(out, pts)

	a, b := out[idx], out[idx+1]
	dx, dy := b.X-a.X, b.Y-a.Y
	dist := math.Hypot(dx, dy)
	if dist < 1e-9 {
		return out
	}
	ux, uy := dx/dist, dy/dist
	out[idx+1] = geometry.Point2D{X: a.X + ux*diameter, Y: a.Y + uy*diameter}
	return out
}

// rasterCircle draws one anti-aliased circle by supersampling a 4x4 grid per
// pixel in its bounding box and averaging coverage against the background
// the pixel would otherwise have (so an additive gradient stays correct
// under the circle too).
func rasterCircle(f Frame, center geometry.Point2D, radius, fg, gradientAdd float64, width int) {
	const ss = 4
	minX := int(math.Floor(center.X - radius - 1))
	maxX := int(math.Ceil(center.X + radius + 1))
	minY := int(math.Floor(center.Y - radius - 1))
	maxY := int(math.Ceil(center.Y + radius + 1))

	for y := minY; y <= maxY; y++ {
		if y < 0 || y >= f.Height {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < 0 || x >= width {
				continue
			}
			var inside int
			for sy := 0; sy < ss; sy++ {
				for sx := 0; sx < ss; sx++ {
					px := float64(x) + (float64(sx)+0.5)/ss
					py := float64(y) + (float64(sy)+0.5)/ss
					dx := px - center.X
					dy := py - center.Y
					if dx*dx+dy*dy <= radius*radius {
						inside++
					}
				}
			}
			if inside == 0 {
				continue
			}
			coverage := float64(inside) / float64(ss*ss)
			bg := float64(f.At(x, y))
			v := bg*(1-coverage) + fg*coverage
			f.Set(x, y, clampByte(v))
		}
	}
}

func addGaussianNoise(f Frame, sigma float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range f.Pix {
		n := rng.NormFloat64() * sigma
		f.Pix[i] = clampByte(float64(f.Pix[i]) + n)
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
