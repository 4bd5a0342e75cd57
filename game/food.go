package game

import "arena-server/geom"

// FoodManager owns the food pellets.
type FoodManager struct {
	sp      *spawner
	mass    float64
	radius  float64
	uniform bool
	max     int

	Items []Food

	taken []geom.Point
}

func newFoodManager(sp *spawner, mass float64, uniform bool, max int) FoodManager {
	return FoodManager{
		sp:      sp,
		mass:    mass,
		radius:  geom.MassToRadius(mass),
		uniform: uniform,
		max:     max,
	}
}

// Add spawns up to n pellets, stopping at the cap or when IDs run out.
// Returns how many were created.
func (m *FoodManager) Add(n int) int {
	if m.uniform {
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
		pos := m.sp.position(m.radius, m.uniform, m.taken)
		if m.uniform {
			m.taken = append(m.taken, pos)
		}
		m.Items = append(m.Items, Food{ID: id, X: pos.X, Y: pos.Y, Radius: m.radius, Hue: m.sp.hue()})
	}
	return added
}

// RemoveExcess drops the n oldest pellets.
func (m *FoodManager) RemoveExcess(n int) {
	if n > len(m.Items) {
		n = len(m.Items)
	}
	for i := 0; i < n; i++ {
		m.sp.ids.release(m.Items[i].ID)
	}
	m.Items = append(m.Items[:0], m.Items[n:]...)
}

func (m *FoodManager) remove(idx []int) {
	m.Items = removeIndexes(m.Items, idx, func(f *Food) { m.sp.ids.release(f.ID) })
}

// Mass returns the mass of one pellet.
func (m *FoodManager) Mass() float64 {
	return m.mass
}
