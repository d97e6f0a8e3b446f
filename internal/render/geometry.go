package render

import (
	"github.com/navmaint/drawboard/internal/document"
)

// Point is a position in scene coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// starOffsets are the ten star vertices as fractions of the shape's
// width and height, measured from its center. Outer and inner points
// alternate starting at the top.
var starOffsets = [10]Point{
	{0, -0.5},
	{0.1123, -0.1545},
	{0.4755, -0.1545},
	{0.1816, 0.0590},
	{0.2939, 0.4045},
	{0, 0.191},
	{-0.2939, 0.4045},
	{-0.1816, 0.0590},
	{-0.4755, -0.1545},
	{-0.1123, -0.1545},
}

// TrianglePoints returns the apex, bottom-left and bottom-right vertices of
// an isosceles triangle centered on the shape position.
func TrianglePoints(sh document.Shape) []Point {
	hw, hh := sh.Width/2, sh.Height/2
	return []Point{
		{sh.X, sh.Y - hh},
		{sh.X - hw, sh.Y + hh},
		{sh.X + hw, sh.Y + hh},
	}
}

// StarPoints returns the ten vertices of the star scaled to the shape.
func StarPoints(sh document.Shape) []Point {
	pts := make([]Point, len(starOffsets))
	for i, o := range starOffsets {
		pts[i] = Point{sh.X + o.X*sh.Width, sh.Y + o.Y*sh.Height}
	}
	return pts
}

// Bounds returns the axis-aligned bounding box of a shape as its top-left
// corner and extent.
func Bounds(sh document.Shape) (x, y, w, h float64) {
	switch sh.Type {
	case document.ShapeRectangle:
		return sh.X, sh.Y, sh.Width, sh.Height
	case document.ShapeCircle:
		return sh.X - sh.Radius, sh.Y - sh.Radius, 2 * sh.Radius, 2 * sh.Radius
	default:
		return sh.X - sh.Width/2, sh.Y - sh.Height/2, sh.Width, sh.Height
	}
}

// Center returns the visual center of a shape, where its label is drawn.
func Center(sh document.Shape) Point {
	x, y, w, h := Bounds(sh)
	return Point{x + w/2, y + h/2}
}

// HandlePoints returns the resize handle positions of a shape in
// top-left, top-right, bottom-left, bottom-right order. Circles expose a
// single bottom-right handle.
func HandlePoints(sh document.Shape) []Point {
	if sh.Type == document.ShapeCircle {
		return []Point{{sh.X + sh.Radius, sh.Y + sh.Radius}}
	}
	x, y, w, h := Bounds(sh)
	return []Point{
		{x, y},
		{x + w, y},
		{x, y + h},
		{x + w, y + h},
	}
}

// Contains reports whether p lies inside the drawn outline of sh.
func Contains(sh document.Shape, p Point) bool {
	switch sh.Type {
	case document.ShapeRectangle:
		return p.X >= sh.X && p.X <= sh.X+sh.Width && p.Y >= sh.Y && p.Y <= sh.Y+sh.Height
	case document.ShapeCircle:
		dx, dy := p.X-sh.X, p.Y-sh.Y
		return dx*dx+dy*dy <= sh.Radius*sh.Radius
	case document.ShapeTriangle:
		return inPolygon(TrianglePoints(sh), p)
	case document.ShapeStar:
		return inPolygon(StarPoints(sh), p)
	}
	return false
}

// inPolygon is an even-odd ray cast.
func inPolygon(poly []Point, p Point) bool {
	in := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
		j = i
	}
	return in
}
