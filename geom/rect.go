package geom

// Rect is an axis aligned rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// RectAround returns the rectangle centred on (x,y) with the given half sizes.
func RectAround(x, y, halfW, halfH float64) Rect {
	return Rect{MinX: x - halfW, MinY: y - halfH, MaxX: x + halfW, MaxY: y + halfH}
}

// Intersects reports whether two rectangles overlap (touching counts).
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX && r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

// IntersectsCircle reports whether the square bounding a circle overlaps r.
func (r Rect) IntersectsCircle(x, y, radius float64) bool {
	return r.Intersects(RectAround(x, y, radius, radius))
}

// Expand grows the rectangle by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}
