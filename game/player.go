package game

import (
	"math"
	"sort"
	"time"

	"arena-server/geom"
)

// Movement tuning shared by every cell.
const (
	minSpeed         = 6.25
	splitCellSpeed   = 20.0
	speedDecrement   = 0.5
	minDistance      = 50.0
	pushingAwaySpeed = 1.1
)

// Player is one participant and the cells it controls. MassTotal always
// equals the sum of the cell masses outside an in-progress mutation.
type Player struct {
	ID        ID
	Name      string
	Hue       uint8
	Admin     bool
	Cells     []Cell
	MassTotal float64
	X, Y      float64
	Target    geom.Point // relative to X,Y

	ScreenW, ScreenH float64

	LastHeartbeat time.Time
	MergeAt       time.Time
	JoinedAt      time.Time
	PeakMass      float64

	eatenBy string
}

// changeCellMass adjusts one cell and keeps MassTotal in step.
func (p *Player) changeCellMass(i int, delta float64) {
	c := &p.Cells[i]
	old := c.Mass
	c.SetMass(old + delta)
	p.MassTotal += c.Mass - old
	if p.MassTotal > p.PeakMass {
		p.PeakMass = p.MassTotal
	}
}

// recomputeMass resyncs MassTotal from the cells.
func (p *Player) recomputeMass() {
	total := 0.0
	for i := range p.Cells {
		total += p.Cells[i].Mass
	}
	p.MassTotal = total
	if total > p.PeakMass {
		p.PeakMass = total
	}
}

// recomputeCentre moves X,Y to the centroid of the cells.
func (p *Player) recomputeCentre() {
	if len(p.Cells) == 0 {
		return
	}
	var xs, ys float64
	for i := range p.Cells {
		xs += p.Cells[i].X
		ys += p.Cells[i].Y
	}
	p.X = xs / float64(len(p.Cells))
	p.Y = ys / float64(len(p.Cells))
}

// LargestRadius returns the radius of the biggest cell.
func (p *Player) LargestRadius() float64 {
	r := 0.0
	for i := range p.Cells {
		if p.Cells[i].Radius > r {
			r = p.Cells[i].Radius
		}
	}
	return r
}

// loseMass shrinks every cell big enough to afford it while the player is
// above minLoss in total.
func (p *Player) loseMass(rate, defaultMass, minLoss float64) {
	for i := range p.Cells {
		m := p.Cells[i].Mass
		if m*(1-rate/1000) > defaultMass && p.MassTotal > minLoss {
			p.changeCellMass(i, -m*rate/1000)
		}
	}
}

// moveCell advances one cell toward the player's target.
func (p *Player) moveCell(c *Cell, slowBase, initMassLog float64) {
	tx := p.X - c.X + p.Target.X
	ty := p.Y - c.Y + p.Target.Y
	dist := math.Hypot(tx, ty)
	deg := math.Atan2(ty, tx)

	slowDown := 1.0
	if c.Speed <= minSpeed {
		slowDown = geom.Log(c.Mass, slowBase) - initMassLog + 1
		if slowDown < 1 {
			slowDown = 1
		}
	}

	dx := c.Speed * math.Cos(deg) / slowDown
	dy := c.Speed * math.Sin(deg) / slowDown

	if c.Speed > minSpeed {
		c.Speed -= speedDecrement
		if c.Speed < minSpeed {
			c.Speed = minSpeed
		}
	}
	// Ease in when the target is inside the cell
	if reach := minDistance + c.Radius; dist < reach {
		dx *= dist / reach
		dy *= dist / reach
	}

	if !math.IsNaN(dx) {
		c.X += dx
	}
	if !math.IsNaN(dy) {
		c.Y += dy
	}
}

// mergeCells fuses overlapping cells of this player. Returns true when any
// cell was absorbed.
func (p *Player) mergeCells() bool {
	merged := false
	for a := 0; a < len(p.Cells); a++ {
		for b := a + 1; b < len(p.Cells); {
			ca, cb := &p.Cells[a], &p.Cells[b]
			if !geom.Overlaps(ca.X, ca.Y, ca.Radius, cb.X, cb.Y, cb.Radius) {
				b++
				continue
			}
			// MassTotal is unchanged: the mass moves between two cells
			ca.SetMass(ca.Mass + cb.Mass)
			p.Cells = append(p.Cells[:b], p.Cells[b+1:]...)
			merged = true
		}
	}
	return merged
}

// pushApart separates overlapping cells of this player.
func (p *Player) pushApart() {
	for a := 0; a < len(p.Cells); a++ {
		for b := a + 1; b < len(p.Cells); b++ {
			ca, cb := &p.Cells[a], &p.Cells[b]
			if !geom.Overlaps(ca.X, ca.Y, ca.Radius, cb.X, cb.Y, cb.Radius) {
				continue
			}
			vx, vy := cb.X-ca.X, cb.Y-ca.Y
			if l := math.Hypot(vx, vy); l > 0 {
				vx, vy = vx/l*pushingAwaySpeed, vy/l*pushingAwaySpeed
			} else {
				// Exactly on top of each other
				vx, vy = 0, 1
			}
			ca.X -= vx
			ca.Y -= vy
			cb.X += vx
			cb.Y += vy
		}
	}
}

// sortCellsByMass orders cells biggest first.
func (p *Player) sortCellsByMass() {
	sort.SliceStable(p.Cells, func(i, j int) bool {
		return p.Cells[i].Mass > p.Cells[j].Mass
	})
}
