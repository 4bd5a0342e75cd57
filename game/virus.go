package game

import (
	"arena-server/config"
	"arena-server/geom"
)

// VirusManager owns the viruses.
type VirusManager struct {
	sp  *spawner
	cfg config.VirusConfig
	max int

	Items []Virus

	taken []geom.Point
}

func newVirusManager(sp *spawner, cfg config.VirusConfig, max int) VirusManager {
	return VirusManager{sp: sp, cfg: cfg, max: max}
}

// Add spawns up to n viruses, capped by the configured maximum. Returns how
// many were created.
func (m *VirusManager) Add(n int) int {
	if m.cfg.Uniform {
		m.taken = m.taken[:0]
		for i := range m.Items {
			m.taken = append(m.taken, geom.Point{X: m.Items[i].X, Y: m.Items[i].Y})
		}
	}
	added := 0
	for ; added < n && len(m.Items) < m.max; added++ {
		id, ok := m.sp.ids.acquire()
		if !ok {
			break
		}
		mass := geom.RandomInRange(m.sp.rng, m.cfg.MassFrom, m.cfg.MassTo)
		radius := geom.MassToRadius(mass)
		pos := m.sp.position(radius, m.cfg.Uniform, m.taken)
		if m.cfg.Uniform {
			m.taken = append(m.taken, pos)
		}
		m.Items = append(m.Items, Virus{ID: id, X: pos.X, Y: pos.Y, Mass: mass, Radius: radius})
	}
	return added
}

func (m *VirusManager) remove(idx []int) {
	m.Items = removeIndexes(m.Items, idx, func(v *Virus) { m.sp.ids.release(v.ID) })
}
