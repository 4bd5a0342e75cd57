package game

import "time"

// splitCell splits cell i into up to requested equal pieces, never producing
// pieces lighter than the default mass.
func (w *World) splitCell(p *Player, i, requested int, now time.Time) {
	c := p.Cells[i]
	pieces := int(c.Mass / w.cfg.Player.DefaultMass)
	if requested < pieces {
		pieces = requested
	}
	if pieces < 2 {
		return
	}
	mass := c.Mass / float64(pieces)
	for k := 0; k < pieces-1; k++ {
		p.Cells = append(p.Cells, newCell(w.newCellID(), c.X, c.Y, mass, splitCellSpeed))
	}
	p.Cells[i].SetMass(mass)
	p.recomputeMass()
	p.MergeAt = now.Add(w.cfg.Player.MergeCooldown)
}

// userSplit halves every cell, biggest first when the cap would be exceeded.
func (w *World) userSplit(p *Player) {
	limit := w.cfg.Player.LimitSplit
	n := len(p.Cells)
	if n*2 > limit {
		n = limit - len(p.Cells)
		p.sortCellsByMass()
	}
	now := w.now()
	for i := 0; i < n; i++ {
		w.splitCell(p, i, 2, now)
	}
}

// virusSplit shatters the given cells into as many pieces as the remaining
// budget allows.
func (w *World) virusSplit(p *Player, cells []int) {
	now := w.now()
	for _, i := range cells {
		w.splitCell(p, i, w.cfg.Player.LimitSplit-len(p.Cells)+1, now)
	}
}
