package frame

import (
	"math"
	"testing"
)

func TestGridSpecPointsCount(t *testing.T) {
	spec := DefaultGridSpec(2448, 2048)
	pts := spec.Points()
	if len(pts) != 40 {
		t.Fatalf("Points() len = %d, want 40", len(pts))
	}
}

func TestGridSpecAlternateRowOffset(t *testing.T) {
	spec := DefaultGridSpec(2448, 2048)
	pts := spec.Points()
	// Row 0 col 0 and row 1 col 0 should differ in x by half a pitch.
	row0col0 := pts[0]
	row1col0 := pts[spec.Cols]
	dx := math.Abs(row1col0.X - row0col0.X)
	if math.Abs(dx-spec.PitchX/2) > 1e-6 {
		t.Fatalf("row offset = %v, want %v", dx, spec.PitchX/2)
	}
}

func TestRenderProducesDistinctIntensities(t *testing.T) {
	spec := DefaultGridSpec(1400, 600)
	spec.CenterX, spec.CenterY = 700, 300
	f := Render(1400, 600, spec, RenderOptions{Background: 40, Foreground: 220})

	center := spec.Points()[0]
	cx, cy := int(center.X), int(center.Y)
	if f.At(cx, cy) < 200 {
		t.Fatalf("circle center intensity = %d, want near foreground 220", f.At(cx, cy))
	}
	if f.At(5, 5) > 60 {
		t.Fatalf("background intensity = %d, want near 40", f.At(5, 5))
	}
}

func TestMergeTangentPairTouches(t *testing.T) {
	spec := DefaultGridSpec(800, 600)
	spec.CenterX, spec.CenterY = 400, 300
	pts := spec.Points()

	opts := RenderOptions{Background: 40, Foreground: 220, MergeTangentPair: true, TangentPairIdx: 0}
	_ = Render(800, 600, spec, opts)

	merged := mergeTangentPair(pts, 0, spec.Diameter)
	dist := merged[0].Distance(merged[1])
	if math.Abs(dist-spec.Diameter) > 1e-6 {
		t.Fatalf("tangent pair distance = %v, want %v", dist, spec.Diameter)
	}
}
