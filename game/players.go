package game

import "sort"

// PlayerManager owns the live players in join order.
type PlayerManager struct {
	Items []*Player
}

// Get returns the player with the given ID, or nil.
func (m *PlayerManager) Get(id ID) *Player {
	if i := m.index(id); i >= 0 {
		return m.Items[i]
	}
	return nil
}

func (m *PlayerManager) index(id ID) int {
	for i, p := range m.Items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *PlayerManager) add(p *Player) {
	m.Items = append(m.Items, p)
}

func (m *PlayerManager) remove(id ID) *Player {
	i := m.index(id)
	if i < 0 {
		return nil
	}
	p := m.Items[i]
	copy(m.Items[i:], m.Items[i+1:])
	m.Items[len(m.Items)-1] = nil
	m.Items = m.Items[:len(m.Items)-1]
	return p
}

// Len returns the number of live players.
func (m *PlayerManager) Len() int {
	return len(m.Items)
}

// TotalMass sums every player's mass.
func (m *PlayerManager) TotalMass() float64 {
	total := 0.0
	for _, p := range m.Items {
		total += p.MassTotal
	}
	return total
}

func (m *PlayerManager) shrink(rate, defaultMass, minLoss float64) {
	for _, p := range m.Items {
		p.loseMass(rate, defaultMass, minLoss)
	}
}

// Top returns up to n players ordered by mass, heaviest first. Ties go to
// the lower ID.
func (m *PlayerManager) Top(n int) []*Player {
	top := make([]*Player, len(m.Items))
	copy(top, m.Items)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].MassTotal != top[j].MassTotal {
			return top[i].MassTotal > top[j].MassTotal
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
