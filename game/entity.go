package game

import (
	"sort"

	"arena-server/geom"
)

// massFloor is the smallest mass any cell may hold.
const massFloor = 1.0

// Cell is one circular body owned by a player.
type Cell struct {
	ID     uint32
	X, Y   float64
	Mass   float64
	Radius float64
	Speed  float64
}

func newCell(id uint32, x, y, mass, speed float64) Cell {
	c := Cell{ID: id, X: x, Y: y, Speed: speed}
	c.SetMass(mass)
	return c
}

// SetMass updates the mass (clamped to the floor) and the derived radius.
func (c *Cell) SetMass(mass float64) {
	if mass < massFloor {
		mass = massFloor
	}
	c.Mass = mass
	c.Radius = geom.MassToRadius(mass)
}

// Food is a static pellet.
type Food struct {
	ID     ID
	X, Y   float64
	Radius float64
	Hue    uint8
}

// MassFood is mass ejected by a player cell. It glides toward the owner's
// target and decelerates.
type MassFood struct {
	ID         ID
	Owner      ID
	SourceCell uint32
	X, Y       float64
	DirX, DirY float64
	Speed      float64
	Mass       float64
	Radius     float64
	Hue        uint8
}

// Virus is a static hazard that splits cells which swallow it.
type Virus struct {
	ID     ID
	X, Y   float64
	Mass   float64
	Radius float64
}

// removeIndexes drops the entries at idx (any order, duplicates allowed) in
// one pass, keeping the survivors in their original order. release is called
// for each dropped entry.
func removeIndexes[T any](items []T, idx []int, release func(*T)) []T {
	if len(idx) == 0 {
		return items
	}
	sort.Ints(idx)
	w, k := 0, 0
	for r := range items {
		if k < len(idx) && idx[k] == r {
			if release != nil {
				release(&items[r])
			}
			for k < len(idx) && idx[k] == r {
				k++
			}
			continue
		}
		items[w] = items[r]
		w++
	}
	var zero T
	for i := w; i < len(items); i++ {
		items[i] = zero
	}
	return items[:w]
}
