// Package spatial implements the uniform grid used for every broad-phase
// query in the arena: collision candidates and visibility culling.
package spatial

import (
	"math"

	"arena-server/geom"
)

// DefaultCellSize suits the arena's typical entity radii (food 10, viruses
// and portals ~70).
const DefaultCellSize = 100.0

// Kind tags the entity family a Ref points into.
type Kind uint8

const (
	KindCell Kind = iota
	KindFood
	KindMassFood
	KindVirus
	KindPortal
)

// Ref identifies an entity in the grid
type Ref struct {
	Kind Kind
	Idx  int // index into the owning manager's slice (or a caller side table)
}

// Entry is one indexed entity: a reference plus the position and radius it
// had when the grid was built.
type Entry struct {
	Ref  Ref
	X, Y float64
	R    float64
}

// Grid buckets entities by centre point into fixed-size cells. Entities
// outside the world rectangle are clamped into the edge cells, and queries
// widen their search by the largest radius seen so that a query returns every
// entity whose circle can reach the query area. Results are a superset: the
// caller runs the exact test.
type Grid struct {
	cellSize   float64
	cols, rows int
	cells      [][]Entry
	maxR       float64
	n          int
}

// NewGrid creates a grid covering a width x height world.
func NewGrid(width, height, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	cols := int(math.Ceil(width/cellSize)) + 1
	rows := int(math.Ceil(height/cellSize)) + 1
	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]Entry, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.maxR = 0
	g.n = 0
}

// Build replaces the grid contents with entries. Within one cell, entries
// keep the order they were given in.
func (g *Grid) Build(entries []Entry) {
	g.Clear()
	for _, e := range entries {
		g.Insert(e.Ref, e.X, e.Y, e.R)
	}
}

// Insert adds an entity at the given position
func (g *Grid) Insert(ref Ref, x, y, r float64) {
	idx := g.cellIdx(x, y)
	g.cells[idx] = append(g.cells[idx], Entry{Ref: ref, X: x, Y: y, R: r})
	g.NoteRadius(r)
	g.n++
}

// NoteRadius widens the query margin after an indexed entity grew.
func (g *Grid) NoteRadius(r float64) {
	if r > g.maxR {
		g.maxR = r
	}
}

// Len returns the number of indexed entities.
func (g *Grid) Len() int {
	return g.n
}

func (g *Grid) clampCol(cx int) int {
	if cx < 0 {
		return 0
	}
	if cx >= g.cols {
		return g.cols - 1
	}
	return cx
}

func (g *Grid) clampRow(cy int) int {
	if cy < 0 {
		return 0
	}
	if cy >= g.rows {
		return g.rows - 1
	}
	return cy
}

func (g *Grid) cellIdx(x, y float64) int {
	cx := g.clampCol(int(math.Floor(x / g.cellSize)))
	cy := g.clampRow(int(math.Floor(y / g.cellSize)))
	return cy*g.cols + cx
}

// QueryRadius appends to buf every entity that may overlap the circle at
// (x,y) with radius r.
func (g *Grid) QueryRadius(x, y, r float64, buf []Ref) []Ref {
	return g.QueryRegion(geom.RectAround(x, y, r, r), buf)
}

// QueryRegion appends to buf every entity that may overlap rect.
func (g *Grid) QueryRegion(rect geom.Rect, buf []Ref) []Ref {
	if g.n == 0 {
		return buf
	}
	area := rect.Expand(g.maxR)
	minCX := g.clampCol(int(math.Floor(area.MinX / g.cellSize)))
	maxCX := g.clampCol(int(math.Floor(area.MaxX / g.cellSize)))
	minCY := g.clampRow(int(math.Floor(area.MinY / g.cellSize)))
	maxCY := g.clampRow(int(math.Floor(area.MaxY / g.cellSize)))
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, e := range g.cells[cy*g.cols+cx] {
				// Edge cells hold clamped out-of-world entries, so filter by
				// real coordinates.
				if e.X < area.MinX || e.X > area.MaxX || e.Y < area.MinY || e.Y > area.MaxY {
					continue
				}
				buf = append(buf, e.Ref)
			}
		}
	}
	return buf
}
