package game

import (
	"math/rand/v2"
	"testing"
	"time"

	"arena-server/config"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// testConfig disables portals and spawn heuristics so tests control layout.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.MaxPortal = 0
	cfg.World.SpawnFarthest = false
	cfg.World.FoodUniform = false
	return cfg
}

func newTestWorld(t *testing.T, cfg *config.Config) (*World, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := NewWorld(cfg, WithRand(rand.New(rand.NewPCG(1, 2))), WithClock(clock.Now))
	return w, clock
}

type cellSpec struct {
	x, y, mass float64
}

// placePlayer spawns a player and replaces its cells with the given layout.
func placePlayer(t *testing.T, w *World, name string, cells ...cellSpec) *Player {
	t.Helper()
	p, err := w.Spawn(name, 1920, 1080)
	if err != nil {
		t.Fatalf("spawn %q: %v", name, err)
	}
	p.Cells = p.Cells[:0]
	for _, c := range cells {
		p.Cells = append(p.Cells, newCell(w.newCellID(), c.x, c.y, c.mass, minSpeed))
	}
	p.recomputeMass()
	p.recomputeCentre()
	w.indexDirty = true
	return p
}

func addVirus(w *World, x, y, mass float64) {
	id, _ := w.ids.acquire()
	v := Virus{ID: id, X: x, Y: y, Mass: mass}
	v.Radius = newCell(0, 0, 0, mass, 0).Radius
	w.Viruses.Items = append(w.Viruses.Items, v)
	w.indexDirty = true
}

func checkInvariants(t *testing.T, w *World) {
	t.Helper()
	limit := w.cfg.Player.LimitSplit
	for _, p := range w.Players.Items {
		if len(p.Cells) == 0 || len(p.Cells) > limit {
			t.Fatalf("player %d has %d cells", p.ID, len(p.Cells))
		}
		sum := 0.0
		for _, c := range p.Cells {
			if !(c.Mass > 0) {
				t.Fatalf("player %d has cell with mass %v", p.ID, c.Mass)
			}
			if want := newCell(0, 0, 0, c.Mass, 0).Radius; c.Radius != want {
				t.Fatalf("radius %v does not match mass %v (want %v)", c.Radius, c.Mass, want)
			}
			sum += c.Mass
		}
		if d := sum - p.MassTotal; d > 1e-6*sum || d < -1e-6*sum {
			t.Fatalf("player %d mass total %v, cells sum to %v", p.ID, p.MassTotal, sum)
		}
	}
}
