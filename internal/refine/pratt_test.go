package refine

import (
	"math"
	"testing"

	"stereogrid/pkg/geometry"
)

func circlePoints(cx, cy, r float64, n int) []geometry.Point2D {
	pts := make([]geometry.Point2D, n)
	for i := 0; i < n; i++ {
		a := float64(i) * 2 * math.Pi / float64(n)
		pts[i] = geometry.Point2D{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

func TestPrattFitExactCircle(t *testing.T) {
	pts := circlePoints(100, 50, 25, 36)
	fit, err := PrattFit(pts)
	if err != nil {
		t.Fatalf("PrattFit() error = %v", err)
	}
	if math.Abs(fit.Center.X-100) > 1e-6 || math.Abs(fit.Center.Y-50) > 1e-6 {
		t.Fatalf("PrattFit() center = %+v, want (100, 50)", fit.Center)
	}
	if math.Abs(fit.Radius-25) > 1e-6 {
		t.Fatalf("PrattFit() radius = %v, want 25", fit.Radius)
	}
	if fit.ResidualRMS > 1e-6 {
		t.Fatalf("PrattFit() residual = %v, want ~0 for exact circle", fit.ResidualRMS)
	}
}

func TestPrattFitPartialArc(t *testing.T) {
	full := circlePoints(0, 0, 10, 72)
	arc := full[:24] // 1/3 of the circle's circumference
	fit, err := PrattFit(arc)
	if err != nil {
		t.Fatalf("PrattFit(arc) error = %v", err)
	}
	if math.Abs(fit.Radius-10) > 0.5 {
		t.Fatalf("PrattFit(arc) radius = %v, want ~10", fit.Radius)
	}
}

func TestPrattFitTooFewPoints(t *testing.T) {
	if _, err := PrattFit([]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}); err == nil {
		t.Fatal("PrattFit() with 2 points should error")
	}
}
