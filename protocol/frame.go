package protocol

import (
	"math"
	"sort"
)

// Cell is one cell of a player as sent on the wire.
type Cell struct {
	X, Y   int16
	Mass   uint16
	Radius uint8
}

// Self is the receiving player's own state.
type Self struct {
	ID        uint16
	X, Y      int16
	MassTotal uint16
	Cells     []Cell
}

// Player is another visible player.
type Player struct {
	ID    uint16
	Name  string
	Hue   uint8
	Cells []Cell
}

type Food struct {
	ID     uint16
	X, Y   int16
	Radius uint8
	Hue    uint8
}

type MassFood struct {
	ID     uint16
	X, Y   int16
	Mass   uint16
	Radius uint8
	Hue    uint8
}

type Virus struct {
	ID     uint16
	X, Y   int16
	Mass   uint16
	Radius uint8
}

type Portal struct {
	ID     uint16
	X, Y   int16
	Mass   uint16
	Radius uint8
	State  uint8
}

// View is everything one connection sees at one instant.
type View struct {
	Self    Self
	Players []Player
	Food    []Food
	Mass    []MassFood
	Viruses []Virus
	Portals []Portal
}

// Reset empties the view, keeping capacity.
func (v *View) Reset() {
	v.Self = Self{Cells: v.Self.Cells[:0]}
	v.Players = v.Players[:0]
	v.Food = v.Food[:0]
	v.Mass = v.Mass[:0]
	v.Viruses = v.Viruses[:0]
	v.Portals = v.Portals[:0]
}

// Section is one entity family in a frame.
type Section[T any] struct {
	Added   []T
	Updated []T
	Removed []uint16
}

func (s *Section[T]) reset() {
	s.Added = s.Added[:0]
	s.Updated = s.Updated[:0]
	s.Removed = s.Removed[:0]
}

// Frame is a full snapshot (Delta false, everything in Added) or a delta
// against what the connection was last sent.
type Frame struct {
	Delta   bool
	Self    Self
	Players Section[Player]
	Food    Section[Food]
	Mass    Section[MassFood]
	Viruses Section[Virus]
	Portals Section[Portal]
}

type record interface {
	Cell | Player | Food | MassFood | Virus | Portal
}

func appendCells(w *Writer, cells []Cell) {
	n := len(cells)
	if n > math.MaxUint8 {
		n = math.MaxUint8
	}
	w.U8(uint8(n))
	for _, c := range cells[:n] {
		w.I16(c.X)
		w.I16(c.Y)
		w.U16(c.Mass)
		w.U8(c.Radius)
	}
}

func readCells(r *Reader) []Cell {
	n := int(r.U8())
	if r.Err() != nil || n == 0 {
		return nil
	}
	cells := make([]Cell, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		cells = append(cells, Cell{X: r.I16(), Y: r.I16(), Mass: r.U16(), Radius: r.U8()})
	}
	return cells
}

func appendRecord(w *Writer, rec any) {
	switch v := rec.(type) {
	case Player:
		w.U16(v.ID)
		w.Str(v.Name)
		w.U8(v.Hue)
		appendCells(w, v.Cells)
	case Food:
		w.U16(v.ID)
		w.I16(v.X)
		w.I16(v.Y)
		w.U8(v.Radius)
		w.U8(v.Hue)
	case MassFood:
		w.U16(v.ID)
		w.I16(v.X)
		w.I16(v.Y)
		w.U16(v.Mass)
		w.U8(v.Radius)
		w.U8(v.Hue)
	case Virus:
		w.U16(v.ID)
		w.I16(v.X)
		w.I16(v.Y)
		w.U16(v.Mass)
		w.U8(v.Radius)
	case Portal:
		w.U16(v.ID)
		w.I16(v.X)
		w.I16(v.Y)
		w.U16(v.Mass)
		w.U8(v.Radius)
		w.U8(v.State)
	}
}

func readPlayer(r *Reader) Player {
	return Player{ID: r.U16(), Name: r.Str(), Hue: r.U8(), Cells: readCells(r)}
}

func readFood(r *Reader) Food {
	return Food{ID: r.U16(), X: r.I16(), Y: r.I16(), Radius: r.U8(), Hue: r.U8()}
}

func readMassFood(r *Reader) MassFood {
	return MassFood{ID: r.U16(), X: r.I16(), Y: r.I16(), Mass: r.U16(), Radius: r.U8(), Hue: r.U8()}
}

func readVirus(r *Reader) Virus {
	return Virus{ID: r.U16(), X: r.I16(), Y: r.I16(), Mass: r.U16(), Radius: r.U8()}
}

func readPortal(r *Reader) Portal {
	return Portal{ID: r.U16(), X: r.I16(), Y: r.I16(), Mass: r.U16(), Radius: r.U8(), State: r.U8()}
}

func sectionCounts[T record](w *Writer, s *Section[T]) {
	w.U16(count(len(s.Added)))
	w.U16(count(len(s.Updated)))
	w.U16(count(len(s.Removed)))
}

func count(n int) uint16 {
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}

func appendSection[T record](w *Writer, s *Section[T]) {
	for _, rec := range s.Added[:count(len(s.Added))] {
		appendRecord(w, rec)
	}
	for _, rec := range s.Updated[:count(len(s.Updated))] {
		appendRecord(w, rec)
	}
	for _, id := range s.Removed[:count(len(s.Removed))] {
		w.U16(id)
	}
}

// AppendFrame encodes f after dst:
// [op][15 x u16 counts][self][players][food][mass][viruses][portals]
// where each family lists its added records, updated records, then removed
// IDs.
func AppendFrame(dst []byte, f *Frame) []byte {
	w := NewWriter(dst)
	if f.Delta {
		w.U8(OpWorldDelta)
	} else {
		w.U8(OpWorldFull)
	}
	sectionCounts(w, &f.Players)
	sectionCounts(w, &f.Food)
	sectionCounts(w, &f.Mass)
	sectionCounts(w, &f.Viruses)
	sectionCounts(w, &f.Portals)

	w.U16(f.Self.ID)
	w.I16(f.Self.X)
	w.I16(f.Self.Y)
	w.U16(f.Self.MassTotal)
	appendCells(w, f.Self.Cells)

	appendSection(w, &f.Players)
	appendSection(w, &f.Food)
	appendSection(w, &f.Mass)
	appendSection(w, &f.Viruses)
	appendSection(w, &f.Portals)
	return w.Bytes()
}

type counts struct {
	added, updated, removed int
}

func readSection[T any](r *Reader, c counts, read func(*Reader) T) Section[T] {
	var s Section[T]
	for i := 0; i < c.added && r.Err() == nil; i++ {
		s.Added = append(s.Added, read(r))
	}
	for i := 0; i < c.updated && r.Err() == nil; i++ {
		s.Updated = append(s.Updated, read(r))
	}
	for i := 0; i < c.removed && r.Err() == nil; i++ {
		s.Removed = append(s.Removed, r.U16())
	}
	return s
}

// DecodeFrame parses a world frame produced by AppendFrame.
func DecodeFrame(b []byte) (*Frame, error) {
	r := NewReader(b)
	f := &Frame{}
	switch r.U8() {
	case OpWorldFull:
	case OpWorldDelta:
		f.Delta = true
	default:
		if r.Err() != nil {
			return nil, r.Err()
		}
		return nil, ErrUnknownOpcode
	}
	var c [5]counts
	for i := range c {
		c[i] = counts{int(r.U16()), int(r.U16()), int(r.U16())}
	}
	f.Self = Self{ID: r.U16(), X: r.I16(), Y: r.I16(), MassTotal: r.U16(), Cells: readCells(r)}
	f.Players = readSection(r, c[0], readPlayer)
	f.Food = readSection(r, c[1], readFood)
	f.Mass = readSection(r, c[2], readMassFood)
	f.Viruses = readSection(r, c[3], readVirus)
	f.Portals = readSection(r, c[4], readPortal)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return f, nil
}

// Apply folds a frame into v the way a client would: a full frame replaces
// the contents, a delta adds, updates and removes by ID. Each family ends
// sorted by ID.
func (v *View) Apply(f *Frame) {
	v.Self = f.Self
	full := !f.Delta
	v.Players = applySection(v.Players, &f.Players, full, func(p Player) uint16 { return p.ID })
	v.Food = applySection(v.Food, &f.Food, full, func(p Food) uint16 { return p.ID })
	v.Mass = applySection(v.Mass, &f.Mass, full, func(p MassFood) uint16 { return p.ID })
	v.Viruses = applySection(v.Viruses, &f.Viruses, full, func(p Virus) uint16 { return p.ID })
	v.Portals = applySection(v.Portals, &f.Portals, full, func(p Portal) uint16 { return p.ID })
}

func applySection[T any](items []T, s *Section[T], full bool, id func(T) uint16) []T {
	byID := make(map[uint16]T, len(items)+len(s.Added))
	if !full {
		for _, it := range items {
			byID[id(it)] = it
		}
		for _, rid := range s.Removed {
			delete(byID, rid)
		}
	}
	for _, it := range s.Added {
		byID[id(it)] = it
	}
	for _, it := range s.Updated {
		byID[id(it)] = it
	}
	out := items[:0]
	for _, it := range byID {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}
