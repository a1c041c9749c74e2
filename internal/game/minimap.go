package game

// Platform is a horizontal walkable segment in player coordinates.
type Platform struct {
	XStart int `json:"x_start" yaml:"x_start"`
	XEnd   int `json:"x_end" yaml:"x_end"`
	Y      int `json:"y" yaml:"y"`
}

func (p Platform) Xs() Range {
	return Range{Start: p.XStart, End: p.XEnd}
}

// Minimap is the snapshot the minimap collaborator publishes each tick. A nil *Minimap means
// the minimap is still being detected.
type Minimap struct {
	BBox      Rect
	Platforms []Platform
	// Rune is in player coordinates, nil when no rune is visible.
	Rune *Point
	// PartiallyOverlapping is set when another UI covers part of the minimap.
	PartiallyOverlapping bool
}

// Bounds returns the minimap area in player coordinates.
func (m *Minimap) Bounds() Rect {
	return Rect{X: 0, Y: 0, Width: m.BBox.Width, Height: m.BBox.Height}
}
