package geometry

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	a := Point2D{X: 0, Y: 0}
	b := Point2D{X: 3, Y: 4}
	if got := a.Distance(b); math.Abs(got-5) > 1e-9 {
		t.Fatalf("Distance() = %v, want 5", got)
	}
}

func TestRotateAroundQuarterTurn(t *testing.T) {
	pivot := Point2D{X: 10, Y: 10}
	p := Point2D{X: 12, Y: 10}
	got := RotateAround(p, pivot, math.Pi/2)
	want := Point2D{X: 10, Y: 12}
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
		t.Fatalf("RotateAround() = %+v, want %+v", got, want)
	}
}

func TestCentroid(t *testing.T) {
	pts := []Point2D{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	got := Centroid(pts)
	if math.Abs(got.X-1) > 1e-9 || math.Abs(got.Y-1) > 1e-9 {
		t.Fatalf("Centroid() = %+v, want {1 1}", got)
	}
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{{X: -1, Y: 5}, {X: 3, Y: -2}, {X: 0, Y: 0}}
	got := BoundingBox(pts)
	want := Rect{X: -1, Y: -2, Width: 4, Height: 7}
	if got != want {
		t.Fatalf("BoundingBox() = %+v, want %+v", got, want)
	}
}

func TestAffineTransformRotationApply(t *testing.T) {
	tr := Rotation(math.Pi)
	got := tr.Apply(Point2D{X: 1, Y: 0})
	if math.Abs(got.X+1) > 1e-9 || math.Abs(got.Y) > 1e-9 {
		t.Fatalf("Apply() = %+v, want {-1 0}", got)
	}
}
