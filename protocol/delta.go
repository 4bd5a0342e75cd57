package protocol

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// Movement below these thresholds (in |dx|+|dy| world units) is not resent
// in a delta. The client keeps drawing the last state it received.
const (
	playerThreshold   = 10
	foodThreshold     = 0
	massFoodThreshold = 15
	virusThreshold    = 0
	portalThreshold   = 0
)

func moved(ax, ay, bx, by int16, threshold int) bool {
	return abs(int(ax)-int(bx))+abs(int(ay)-int(by)) > threshold
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func playerChanged(old, cur Player) bool {
	if len(old.Cells) != len(cur.Cells) || old.Name != cur.Name || old.Hue != cur.Hue {
		return true
	}
	for i := range cur.Cells {
		o, c := old.Cells[i], cur.Cells[i]
		if o.Mass != c.Mass || o.Radius != c.Radius || moved(o.X, o.Y, c.X, c.Y, playerThreshold) {
			return true
		}
	}
	return false
}

func foodChanged(old, cur Food) bool {
	return old.Radius != cur.Radius || old.Hue != cur.Hue || moved(old.X, old.Y, cur.X, cur.Y, foodThreshold)
}

func massFoodChanged(old, cur MassFood) bool {
	return old.Mass != cur.Mass || old.Radius != cur.Radius || moved(old.X, old.Y, cur.X, cur.Y, massFoodThreshold)
}

func virusChanged(old, cur Virus) bool {
	return old.Mass != cur.Mass || old.Radius != cur.Radius || moved(old.X, old.Y, cur.X, cur.Y, virusThreshold)
}

func portalChanged(old, cur Portal) bool {
	return old.State != cur.State || old.Mass != cur.Mass || old.Radius != cur.Radius ||
		moved(old.X, old.Y, cur.X, cur.Y, portalThreshold)
}

// family remembers, per ID, the record a connection was last sent.
type family[T any] struct {
	sent    *intmap.Map[uint16, T]
	next    *intmap.Map[uint16, T]
	id      func(T) uint16
	changed func(old, cur T) bool
	keep    func(T) T
}

func newFamily[T any](id func(T) uint16, changed func(old, cur T) bool) *family[T] {
	return &family[T]{
		sent:    intmap.New[uint16, T](64),
		next:    intmap.New[uint16, T](64),
		id:      id,
		changed: changed,
	}
}

func (f *family[T]) diff(cur []T, out *Section[T], full bool) {
	out.reset()
	f.next.Clear()
	for _, rec := range cur {
		id := f.id(rec)
		old, ok := f.sent.Get(id)
		switch {
		case full || !ok:
			out.Added = append(out.Added, rec)
		case f.changed(old, rec):
			out.Updated = append(out.Updated, rec)
		default:
			f.next.Put(id, old)
			continue
		}
		if f.keep != nil {
			rec = f.keep(rec)
		}
		f.next.Put(id, rec)
	}
	if !full {
		f.sent.ForEach(func(id uint16, _ T) bool {
			if !f.next.Has(id) {
				out.Removed = append(out.Removed, id)
			}
			return true
		})
		slices.Sort(out.Removed)
	}
	f.sent, f.next = f.next, f.sent
}

func (f *family[T]) reset() {
	f.sent.Clear()
	f.next.Clear()
}

// keepPlayer detaches the remembered cells from the caller's buffers.
func keepPlayer(p Player) Player {
	p.Cells = slices.Clone(p.Cells)
	return p
}

// Tracker produces the frames for one connection. The first frame, and the
// first after Reset, is full; later ones carry only what changed beyond the
// per-family thresholds.
type Tracker struct {
	fresh   bool
	players *family[Player]
	food    *family[Food]
	mass    *family[MassFood]
	viruses *family[Virus]
	portals *family[Portal]
}

// NewTracker returns a tracker whose next frame is full.
func NewTracker() *Tracker {
	t := &Tracker{
		fresh:   true,
		players: newFamily(func(p Player) uint16 { return p.ID }, playerChanged),
		food:    newFamily(func(p Food) uint16 { return p.ID }, foodChanged),
		mass:    newFamily(func(p MassFood) uint16 { return p.ID }, massFoodChanged),
		viruses: newFamily(func(p Virus) uint16 { return p.ID }, virusChanged),
		portals: newFamily(func(p Portal) uint16 { return p.ID }, portalChanged),
	}
	t.players.keep = keepPlayer
	return t
}

// Next fills f with a full frame when the tracker is fresh and a delta
// otherwise.
func (t *Tracker) Next(v *View, f *Frame) {
	if t.fresh {
		t.Full(v, f)
		return
	}
	t.Delta(v, f)
}

// Full fills f with everything in v and makes v the baseline.
func (t *Tracker) Full(v *View, f *Frame) {
	t.fill(v, f, true)
	t.fresh = false
}

// Delta fills f with the difference between v and the baseline.
func (t *Tracker) Delta(v *View, f *Frame) {
	t.fill(v, f, false)
}

func (t *Tracker) fill(v *View, f *Frame, full bool) {
	f.Delta = !full
	f.Self = v.Self
	t.players.diff(v.Players, &f.Players, full)
	t.food.diff(v.Food, &f.Food, full)
	t.mass.diff(v.Mass, &f.Mass, full)
	t.viruses.diff(v.Viruses, &f.Viruses, full)
	t.portals.diff(v.Portals, &f.Portals, full)
}

// Reset forgets the baseline, so the next frame is full. Used after a frame
// was dropped and the client can no longer be assumed to hold it.
func (t *Tracker) Reset() {
	t.fresh = true
	t.players.reset()
	t.food.reset()
	t.mass.reset()
	t.viruses.reset()
	t.portals.reset()
}
