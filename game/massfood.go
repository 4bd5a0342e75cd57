package game

import (
	"math"

	"arena-server/geom"
)

const (
	massFoodSpeed      = 25.0
	massFoodDecrement  = 0.5
	massFoodEdgeMargin = 5.0
)

// MassFoodManager owns blobs ejected by players.
type MassFoodManager struct {
	sp  *spawner
	max int

	Items []MassFood
}

func newMassFoodManager(sp *spawner, max int) MassFoodManager {
	return MassFoodManager{sp: sp, max: max}
}

// add ejects mass from cell c of player p toward the player's target.
// Returns false when the cap is reached.
func (m *MassFoodManager) add(p *Player, c *Cell, mass float64) bool {
	if len(m.Items) >= m.max {
		return false
	}
	id, ok := m.sp.ids.acquire()
	if !ok {
		return false
	}
	dx := p.X + p.Target.X - c.X
	dy := p.Y + p.Target.Y - c.Y
	if l := math.Hypot(dx, dy); l > 0 {
		dx, dy = dx/l, dy/l
	} else {
		dx, dy = 1, 0
	}
	m.Items = append(m.Items, MassFood{
		ID:         id,
		Owner:      p.ID,
		SourceCell: c.ID,
		X:          c.X,
		Y:          c.Y,
		DirX:       dx,
		DirY:       dy,
		Speed:      massFoodSpeed,
		Mass:       mass,
		Radius:     geom.MassToRadius(mass),
		Hue:        p.Hue,
	})
	return true
}

// Move glides every moving blob and keeps it inside the world.
func (m *MassFoodManager) Move() {
	for i := range m.Items {
		f := &m.Items[i]
		if f.Speed <= 0 {
			continue
		}
		f.X += f.DirX * f.Speed
		f.Y += f.DirY * f.Speed
		f.Speed -= massFoodDecrement
		if f.Speed < 0 {
			f.Speed = 0
		}
		f.X, f.Y = geom.ClampToBounds(f.X, f.Y, f.Radius+massFoodEdgeMargin, m.sp.width, m.sp.height)
	}
}

// TotalMass sums the mass of every blob.
func (m *MassFoodManager) TotalMass() float64 {
	total := 0.0
	for i := range m.Items {
		total += m.Items[i].Mass
	}
	return total
}

func (m *MassFoodManager) remove(idx []int) {
	m.Items = removeIndexes(m.Items, idx, func(f *MassFood) { m.sp.ids.release(f.ID) })
}
