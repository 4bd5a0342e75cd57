package game

import (
	"slices"
	"time"

	"arena-server/geom"
	"arena-server/spatial"
)

// massFoodMargin is how much heavier than a blob a cell must be to eat it.
const massFoodMargin = 1.1

// Tick runs one physics step. When it returns every mass transfer and
// removal of the step has been applied.
func (w *World) Tick() {
	now := w.now()
	w.tick++

	w.Portals.Update(now)
	w.expireHeartbeats(now)

	for _, p := range w.Players.Items {
		w.movePlayer(p, now)
	}
	w.consume()
	w.Mass.Move()

	w.buildCellIndex()
	w.resolvePlayerCollisions()
	w.applyPortals()
	w.removeDeadCells(now)

	w.indexDirty = true
}

func (w *World) movePlayer(p *Player, now time.Time) {
	if len(p.Cells) > 1 {
		if p.MergeAt.Before(now) {
			p.mergeCells()
		} else {
			p.pushApart()
		}
	}
	wc := w.cfg.World
	for i := range p.Cells {
		c := &p.Cells[i]
		p.moveCell(c, w.cfg.Player.SlowBase, w.initMassLog)
		c.X, c.Y = geom.ClampToBounds(c.X, c.Y, c.Radius/3, wc.Width, wc.Height)
	}
	p.recomputeCentre()
}

func resetFlags(flags []bool, n int) []bool {
	if cap(flags) < n {
		return make([]bool, n)
	}
	flags = flags[:n]
	clear(flags)
	return flags
}

func (w *World) buildEntityIndex() {
	w.entries = w.entries[:0]
	for i := range w.Food.Items {
		f := &w.Food.Items[i]
		w.entries = append(w.entries, spatial.Entry{Ref: spatial.Ref{Kind: spatial.KindFood, Idx: i}, X: f.X, Y: f.Y, R: f.Radius})
	}
	for i := range w.Mass.Items {
		m := &w.Mass.Items[i]
		w.entries = append(w.entries, spatial.Entry{Ref: spatial.Ref{Kind: spatial.KindMassFood, Idx: i}, X: m.X, Y: m.Y, R: m.Radius})
	}
	for i := range w.Viruses.Items {
		v := &w.Viruses.Items[i]
		w.entries = append(w.entries, spatial.Entry{Ref: spatial.Ref{Kind: spatial.KindVirus, Idx: i}, X: v.X, Y: v.Y, R: v.Radius})
	}
	for i := range w.Portals.Items {
		p := &w.Portals.Items[i]
		w.entries = append(w.entries, spatial.Entry{Ref: spatial.Ref{Kind: spatial.KindPortal, Idx: i}, X: p.X, Y: p.Y, R: p.Radius})
	}
	w.entities.Build(w.entries)
}

// buildCellIndex indexes every player cell. Ref.Idx is a sequence number
// into cellRefs, assigned in ascending player then cell order.
func (w *World) buildCellIndex() {
	w.cellRefs = w.cellRefs[:0]
	w.entries = w.entries[:0]
	for pi, p := range w.Players.Items {
		for ci := range p.Cells {
			c := &p.Cells[ci]
			w.entries = append(w.entries, spatial.Entry{
				Ref: spatial.Ref{Kind: spatial.KindCell, Idx: len(w.cellRefs)},
				X:   c.X, Y: c.Y, R: c.Radius,
			})
			w.cellRefs = append(w.cellRefs, cellRef{player: pi, cell: ci})
		}
	}
	w.cells.Build(w.entries)
	w.cellDead = resetFlags(w.cellDead, len(w.cellRefs))
}

// consume lets every cell eat the food, blobs and viruses it reaches. Each
// entity is eaten at most once per tick, by the first cell in player order.
func (w *World) consume() {
	w.buildEntityIndex()
	w.foodEaten = resetFlags(w.foodEaten, len(w.Food.Items))
	w.massEaten = resetFlags(w.massEaten, len(w.Mass.Items))
	w.virusEaten = resetFlags(w.virusEaten, len(w.Viruses.Items))
	foodMass := w.Food.Mass()

	for _, p := range w.Players.Items {
		w.virusHits = w.virusHits[:0]
		for ci := range p.Cells {
			c := &p.Cells[ci]
			gained := 0.0
			hitVirus := false
			w.refs = w.entities.QueryRadius(c.X, c.Y, c.Radius, w.refs[:0])
			for _, r := range w.refs {
				switch r.Kind {
				case spatial.KindFood:
					f := &w.Food.Items[r.Idx]
					if w.foodEaten[r.Idx] || !geom.Overlaps(c.X, c.Y, c.Radius, f.X, f.Y, f.Radius) {
						continue
					}
					w.foodEaten[r.Idx] = true
					gained += foodMass
				case spatial.KindMassFood:
					m := &w.Mass.Items[r.Idx]
					if w.massEaten[r.Idx] || !geom.PointInCircle(m.X, m.Y, c.X, c.Y, c.Radius) {
						continue
					}
					if c.Mass <= m.Mass*massFoodMargin {
						continue
					}
					// A blob still in flight cannot be re-eaten by the cell that fired it
					if m.Owner == p.ID && m.SourceCell == c.ID && m.Speed > 0 {
						continue
					}
					w.massEaten[r.Idx] = true
					gained += m.Mass
				case spatial.KindVirus:
					v := &w.Viruses.Items[r.Idx]
					if w.virusEaten[r.Idx] || c.Mass < v.Mass {
						continue
					}
					if !geom.Contains(c.X, c.Y, c.Radius, v.X, v.Y, v.Radius) {
						continue
					}
					w.virusEaten[r.Idx] = true
					hitVirus = true
				}
			}
			if gained > 0 {
				p.changeCellMass(ci, gained)
			}
			if hitVirus {
				w.virusHits = append(w.virusHits, ci)
			}
		}
		if len(w.virusHits) > 0 {
			w.virusSplit(p, w.virusHits)
		}
	}

	w.Food.remove(collect(w.foodEaten, w.eatenIdx[:0]))
	w.Mass.remove(collect(w.massEaten, w.eatenIdx[:0]))
	w.Viruses.remove(collect(w.virusEaten, w.eatenIdx[:0]))
}

func collect(flags []bool, dst []int) []int {
	for i, set := range flags {
		if set {
			dst = append(dst, i)
		}
	}
	return dst
}

// resolvePlayerCollisions applies every eat between cells of different
// players. Pairs are visited once in ascending sequence order and cells
// eaten earlier in the pass are skipped.
func (w *World) resolvePlayerCollisions() {
	if w.Players.Len() < 2 {
		return
	}
	players := w.Players.Items
	for seq := range w.cellRefs {
		if w.cellDead[seq] {
			continue
		}
		ra := w.cellRefs[seq]
		pa := players[ra.player]
		a := &pa.Cells[ra.cell]
		w.refs = w.cells.QueryRadius(a.X, a.Y, a.Radius, w.refs[:0])
		slices.SortFunc(w.refs, func(x, y spatial.Ref) int { return x.Idx - y.Idx })

		for _, r := range w.refs {
			other := r.Idx
			if other <= seq || w.cellDead[other] {
				continue
			}
			rb := w.cellRefs[other]
			if rb.player == ra.player {
				continue
			}
			pb := players[rb.player]
			b := &pb.Cells[rb.cell]
			switch {
			case geom.Contains(a.X, a.Y, a.Radius, b.X, b.Y, b.Radius):
				w.eatCell(pa, ra.cell, pb, rb.cell)
				w.cellDead[other] = true
				w.cells.NoteRadius(a.Radius)
			case geom.Contains(b.X, b.Y, b.Radius, a.X, a.Y, a.Radius):
				w.eatCell(pb, rb.cell, pa, ra.cell)
				w.cellDead[seq] = true
				w.cells.NoteRadius(b.Radius)
			}
			if w.cellDead[seq] {
				break
			}
		}
	}
}

// eatCell moves the victim cell's mass to the eater. The victim cell stays
// in place until removeDeadCells.
func (w *World) eatCell(eater *Player, ei int, victim *Player, vi int) {
	mass := victim.Cells[vi].Mass
	eater.changeCellMass(ei, mass)
	victim.MassTotal -= mass
	victim.eatenBy = eater.Name
}

// applyPortals teleports every live cell whose centre is inside an active
// portal.
func (w *World) applyPortals() {
	wc := w.cfg.World
	for i := range w.Portals.Items {
		pt := &w.Portals.Items[i]
		if pt.State != PortalActive {
			continue
		}
		w.refs = w.cells.QueryRadius(pt.X, pt.Y, pt.Radius, w.refs[:0])
		for _, r := range w.refs {
			if w.cellDead[r.Idx] {
				continue
			}
			ref := w.cellRefs[r.Idx]
			c := &w.Players.Items[ref.player].Cells[ref.cell]
			if !geom.PointInCircle(c.X, c.Y, pt.X, pt.Y, pt.Radius) {
				continue
			}
			pos := geom.RandomPosition(w.rng, c.Radius, wc.Width, wc.Height)
			c.X, c.Y = pos.X, pos.Y
		}
	}
}

// removeDeadCells drops the cells eaten this tick and eliminates players
// left with none.
func (w *World) removeDeadCells(now time.Time) {
	var eliminated []*Player
	start := 0
	for _, p := range w.Players.Items {
		n := len(p.Cells)
		w.deadIdx = w.deadIdx[:0]
		for ci := 0; ci < n; ci++ {
			if w.cellDead[start+ci] {
				w.deadIdx = append(w.deadIdx, ci)
			}
		}
		start += n
		if len(w.deadIdx) > 0 {
			p.Cells = removeIndexes(p.Cells, w.deadIdx, nil)
			p.recomputeMass()
		}
		if len(p.Cells) == 0 {
			eliminated = append(eliminated, p)
			continue
		}
		p.recomputeCentre()
	}
	for _, p := range eliminated {
		w.eliminate(p, now)
	}
}
