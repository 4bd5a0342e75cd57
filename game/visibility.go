package game

import (
	"sort"

	"arena-server/geom"
	"arena-server/spatial"
)

// VisibleSet lists, by index into each manager's Items, what one view
// contains. Indexes are only valid until the world next mutates.
type VisibleSet struct {
	Players []int
	Food    []int
	Mass    []int
	Viruses []int
	Portals []int
}

// Reset empties the set, keeping capacity.
func (v *VisibleSet) Reset() {
	v.Players = v.Players[:0]
	v.Food = v.Food[:0]
	v.Mass = v.Mass[:0]
	v.Viruses = v.Viruses[:0]
	v.Portals = v.Portals[:0]
}

// visibilityPad enlarges each entity's box so it appears slightly before it
// enters the screen.
const visibilityPad = 1.1

// ViewRect returns the region a player sees: its screen, widened by its
// biggest cell and the configured margin, centred on the player.
func (w *World) ViewRect(p *Player) geom.Rect {
	pad := p.LargestRadius() + w.cfg.Network.ViewMargin
	return geom.RectAround(p.X, p.Y, p.ScreenW/2+pad, p.ScreenH/2+pad)
}

// SpectatorRect returns the region a spectator with the given screen sees.
func (w *World) SpectatorRect(screenW, screenH float64) geom.Rect {
	pad := w.cfg.Network.ViewMargin
	return geom.RectAround(w.cfg.World.Width/2, w.cfg.World.Height/2,
		clampScreen(screenW)/2+pad, clampScreen(screenH)/2+pad)
}

// ensureIndex rebuilds both grids when anything moved since the last build.
func (w *World) ensureIndex() {
	if !w.indexDirty {
		return
	}
	w.buildEntityIndex()
	w.buildCellIndex()
	w.indexDirty = false
}

// Visible fills out with everything inside view. The player with ID exclude
// is left out of the player list (zero excludes nobody).
func (w *World) Visible(view geom.Rect, exclude ID, out *VisibleSet) {
	out.Reset()
	w.ensureIndex()

	w.refs = w.entities.QueryRegion(view, w.refs[:0])
	for _, r := range w.refs {
		switch r.Kind {
		case spatial.KindFood:
			f := &w.Food.Items[r.Idx]
			if view.IntersectsCircle(f.X, f.Y, f.Radius*visibilityPad) {
				out.Food = append(out.Food, r.Idx)
			}
		case spatial.KindMassFood:
			m := &w.Mass.Items[r.Idx]
			if view.IntersectsCircle(m.X, m.Y, m.Radius*visibilityPad) {
				out.Mass = append(out.Mass, r.Idx)
			}
		case spatial.KindVirus:
			v := &w.Viruses.Items[r.Idx]
			if view.IntersectsCircle(v.X, v.Y, v.Radius*visibilityPad) {
				out.Viruses = append(out.Viruses, r.Idx)
			}
		case spatial.KindPortal:
			p := &w.Portals.Items[r.Idx]
			if p.Visible() && view.IntersectsCircle(p.X, p.Y, p.Radius*visibilityPad) {
				out.Portals = append(out.Portals, r.Idx)
			}
		}
	}

	if n := len(w.Players.Items); len(w.seen) < n {
		w.seen = make([]uint64, n)
	}
	w.seenStamp++
	w.refs = w.cells.QueryRegion(view, w.refs[:0])
	for _, r := range w.refs {
		ref := w.cellRefs[r.Idx]
		if w.seen[ref.player] == w.seenStamp {
			continue
		}
		p := w.Players.Items[ref.player]
		if p.ID == exclude {
			continue
		}
		c := &p.Cells[ref.cell]
		if view.IntersectsCircle(c.X, c.Y, c.Radius*visibilityPad) {
			w.seen[ref.player] = w.seenStamp
			out.Players = append(out.Players, ref.player)
		}
	}

	sort.Ints(out.Food)
	sort.Ints(out.Mass)
	sort.Ints(out.Viruses)
	sort.Ints(out.Portals)
	sort.Ints(out.Players)
}
