package detect

import (
	"errors"
	"math"
	"testing"

	"stereogrid/internal/frame"
	"stereogrid/pkg/geometry"
)

// drawDisk rasterizes a filled, mildly anti-aliased disk directly onto f,
// independent of the frame package's own synthetic renderer, so the
// missing-circle test below doesn't depend on frame.GridSpec internals.
func drawDisk(f frame.Frame, center geometry.Point2D, radius float64, fg uint8) {
	minX := int(center.X - radius - 1)
	maxX := int(center.X + radius + 1)
	minY := int(center.Y - radius - 1)
	maxY := int(center.Y + radius + 1)
	for y := minY; y <= maxY; y++ {
		if y < 0 || y >= f.Height {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < 0 || x >= f.Width {
				continue
			}
			dx := float64(x) - center.X
			dy := float64(y) - center.Y
			if dx*dx+dy*dy <= radius*radius {
				f.Set(x, y, fg)
			}
		}
	}
}

// TestDetectCleanGrid is spec.md 8's end-to-end scenario 1.
func TestDetectCleanGrid(t *testing.T) {
	spec := frame.DefaultGridSpec(2448, 2048)
	f := frame.Render(2448, 2048, spec, frame.RenderOptions{Background: 40, Foreground: 220})
	truth := spec.Points()

	engine := NewEngine(DefaultParams(), nil)
	result, err := engine.Detect(f)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	for _, c := range result.Centers {
		best := math.Inf(1)
		for _, tp := range truth {
			if d := c.Distance(tp); d < best {
				best = d
			}
		}
		if best > 0.25 {
			t.Errorf("center %+v is %.3f px from nearest ground truth, want <= 0.25", c, best)
		}
	}

	for i, tag := range result.Tags {
		if tag.String() != "dt-fast" {
			t.Errorf("center %d tag = %s, want dt-fast for a clean high-contrast grid", i, tag.String())
		}
	}
}

// TestDetectDeterministic is property P2.
func TestDetectDeterministic(t *testing.T) {
	spec := frame.DefaultGridSpec(1200, 1000)
	spec.CenterX, spec.CenterY = 600, 500
	f := frame.Render(1200, 1000, spec, frame.RenderOptions{Background: 40, Foreground: 220})

	r1, err1 := NewEngine(DefaultParams(), nil).Detect(f)
	r2, err2 := NewEngine(DefaultParams(), nil).Detect(f)
	if err1 != nil || err2 != nil {
		t.Fatalf("Detect() errors = %v, %v", err1, err2)
	}
	if r1.Centers != r2.Centers {
		t.Fatal("Detect() is not deterministic across two engine instances on identical input")
	}
}

// TestDetectMissingCircleFails is spec.md 8's end-to-end scenario 5: a 39-
// circle grid must never silently return a length-39 result.
func TestDetectMissingCircleFails(t *testing.T) {
	spec := frame.DefaultGridSpec(1200, 1000)
	spec.CenterX, spec.CenterY = 600, 500
	pts := spec.Points()[:39]

	f := frame.New(1200, 1000)
	for i := range f.Pix {
		f.Pix[i] = 40
	}
	r := spec.Diameter / 2
	for _, p := range pts {
		drawDisk(f, p, r, 220)
	}

	_, err := NewEngine(DefaultParams(), nil).Detect(f)
	if err == nil {
		t.Fatal("Detect() with 39 circles returned nil error, want a detection failure")
	}
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("Detect() error = %v (%T), want a *detect.Error", err, err)
	}
	switch de.Code {
	case TooFewCandidates, SplitUnderproduced, OrderingAmbiguous:
	default:
		t.Fatalf("Detect() error code = %v, want a detection-quality code", de.Code)
	}
}

func TestDetectRejectsMalformedFrame(t *testing.T) {
	bad := frame.Frame{Width: 10, Height: 10, Pix: make([]uint8, 5)}
	_, err := NewEngine(DefaultParams(), nil).Detect(bad)
	if err == nil {
		t.Fatal("Detect() with a malformed pixel buffer returned nil error")
	}
	var de *Error
	if errors.As(err, &de) {
		t.Fatal("input-shape errors should be reported verbatim, not as a *detect.Error")
	}
}
