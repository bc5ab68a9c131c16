// Package geometry provides the 2-D primitives shared by every stage of the
// circle-grid detection pipeline: points, integer/float rectangles, and the
// affine transform used to synthesize rotated calibration targets for tests.
package geometry

import "math"

// Point2D is a point in image coordinates (pixels), sub-pixel precision.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Dot returns the dot product of two points treated as vectors.
func (p Point2D) Dot(other Point2D) float64 {
	return p.X*other.X + p.Y*other.Y
}

// RectInt is an axis-aligned rectangle with integer bounds, used for
// component bounding boxes produced by the connected-component pass.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns width * height.
func (r RectInt) Area() int {
	return r.Width * r.Height
}

// ToFloat converts to a float Rect.
func (r RectInt) ToFloat() Rect {
	return Rect{X: float64(r.X), Y: float64(r.Y), Width: float64(r.Width), Height: float64(r.Height)}
}

// Rect is an axis-aligned rectangle with float bounds.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// AffineTransform is a 2x3 affine transformation matrix:
//
//	[a b tx]
//	[c d ty]
//
// Used (through RotateAround) by the synthetic-frame generator to place a
// grid at a known rotation, so a rotated frame has exact ground truth.
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Rotation returns a rotation transform about the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// RotateAround rotates p by radians about the pivot point.
func RotateAround(p, pivot Point2D, radians float64) Point2D {
	rel := p.Sub(pivot)
	rot := Rotation(radians).Apply(rel)
	return pivot.Add(rot)
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
