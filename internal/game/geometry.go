package game

import "math"

// Point is a position in minimap or screen space. Player positions use a bottom-left origin,
// detector results use the screen top-left origin.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Dot(o Point) int {
	return p.X*o.X + p.Y*o.Y
}

func (p Point) DistanceTo(o Point) float64 {
	return math.Hypot(float64(p.X-o.X), float64(p.Y-o.Y))
}

type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func RectFromPoints(tl, br Point) Rect {
	return Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

func (r Rect) TL() Point {
	return Point{X: r.X, Y: r.Y}
}

func (r Rect) BR() Point {
	return Point{X: r.X + r.Width, Y: r.Y + r.Height}
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p is inside r, the right and bottom edges excluded.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Range is a half-open integer interval [Start, End).
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

func (r Range) Contains(v int) bool {
	return v >= r.Start && v < r.End
}

func (r Range) Empty() bool {
	return r.End <= r.Start
}

func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}
