package platform

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns width*height, or 0 for empty rectangles.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the center point of the rectangle.
func (r Rect) Center() (cx, cy int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ContainsPoint reports whether (x, y) lies inside r.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Contains reports whether other lies entirely inside r.
func (r Rect) Contains(other Rect) bool {
	if r.Empty() || other.Empty() {
		return false
	}
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// Intersect returns the overlapping region of r and other.
func (r Rect) Intersect(other Rect) Rect {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X+r.Width, other.X+other.Width)
	y2 := min(r.Y+r.Height, other.Y+other.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Intersects reports whether r and other overlap.
func (r Rect) Intersects(other Rect) bool {
	return !r.Intersect(other).Empty()
}

// FitInto shrinks r to fit inside area and moves it so it lies entirely
// within area. An empty area returns r unchanged.
func (r Rect) FitInto(area Rect) Rect {
	if area.Empty() {
		return r
	}
	out := r
	if out.Width > area.Width {
		out.Width = area.Width
	}
	if out.Height > area.Height {
		out.Height = area.Height
	}
	if out.X < area.X {
		out.X = area.X
	}
	if out.Y < area.Y {
		out.Y = area.Y
	}
	if out.X+out.Width > area.X+area.Width {
		out.X = area.X + area.Width - out.Width
	}
	if out.Y+out.Height > area.Y+area.Height {
		out.Y = area.Y + area.Height - out.Height
	}
	return out
}

// CenterIn returns r with its size fitted into area and positioned at the
// center of area.
func (r Rect) CenterIn(area Rect) Rect {
	out := r
	if out.Width > area.Width {
		out.Width = area.Width
	}
	if out.Height > area.Height {
		out.Height = area.Height
	}
	out.X = area.X + (area.Width-out.Width)/2
	out.Y = area.Y + (area.Height-out.Height)/2
	return out
}
