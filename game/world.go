// Package game holds the authoritative arena simulation: entity managers,
// the physics tick, splitting and merging, portal waves and visibility.
//
// A World is not safe for concurrent use. One goroutine owns it and calls
// every method.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"arena-server/config"
	"arena-server/geom"
	"arena-server/spatial"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrWorldFull     = errors.New("world is full")
)

// EventKind tags an Event.
type EventKind uint8

const (
	// EventEliminated fires when a player's last cell was eaten.
	EventEliminated EventKind = iota + 1
	// EventTimedOut fires when a player stopped sending heartbeats.
	EventTimedOut
)

// Event is a player removal produced inside the world. The player is already
// gone when the event is drained.
type Event struct {
	Kind     EventKind
	Player   ID
	Name     string
	EatenBy  string
	Reason   string
	PeakMass float64
	Played   time.Duration
}

// Option configures a World.
type Option func(*World)

// WithRand sets the random source used for spawning.
func WithRand(rng *rand.Rand) Option {
	return func(w *World) { w.rng = rng }
}

// WithClock sets the wall clock used for portals, merge timers and
// heartbeats.
func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

type cellRef struct {
	player, cell int
}

// World owns every entity manager and the spatial index.
type World struct {
	cfg *config.Config
	now func() time.Time
	rng *rand.Rand
	ids idPool
	sp  spawner

	Food    FoodManager
	Mass    MassFoodManager
	Viruses VirusManager
	Portals PortalManager
	Players PlayerManager

	entities   *spatial.Grid
	cells      *spatial.Grid
	cellRefs   []cellRef
	indexDirty bool

	tick        uint64
	initMassLog float64
	nextCellID  uint32
	events      []Event

	// Scratch reused across ticks
	refs       []spatial.Ref
	entries    []spatial.Entry
	foodEaten  []bool
	massEaten  []bool
	virusEaten []bool
	cellDead   []bool
	eatenIdx   []int
	deadIdx    []int
	virusHits  []int
	seen       []uint64
	seenStamp  uint64
	centres    []geom.Point
}

// NewWorld creates an empty world. Call Balance once to populate food and
// viruses.
func NewWorld(cfg *config.Config, opts ...Option) *World {
	w := &World{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	w.sp = spawner{rng: w.rng, ids: &w.ids, width: cfg.World.Width, height: cfg.World.Height}
	w.Food = newFoodManager(&w.sp, cfg.World.FoodMass, cfg.World.FoodUniform, cfg.World.MaxFood)
	w.Mass = newMassFoodManager(&w.sp, cfg.World.MaxMassFood)
	w.Viruses = newVirusManager(&w.sp, cfg.Virus, cfg.World.MaxVirus)
	w.Portals = newPortalManager(&w.sp, cfg.Portal, cfg.World.MaxPortal, w.now())
	w.entities = spatial.NewGrid(cfg.World.Width, cfg.World.Height, spatial.DefaultCellSize)
	w.cells = spatial.NewGrid(cfg.World.Width, cfg.World.Height, spatial.DefaultCellSize)
	w.initMassLog = geom.Log(cfg.Player.DefaultMass, cfg.Player.SlowBase)
	w.indexDirty = true
	return w
}

// Config returns the configuration the world runs with.
func (w *World) Config() *config.Config {
	return w.cfg
}

// Now returns the world clock.
func (w *World) Now() time.Time {
	return w.now()
}

// TickCount returns the number of completed physics ticks.
func (w *World) TickCount() uint64 {
	return w.tick
}

// Player returns the live player with the given ID, or nil.
func (w *World) Player(id ID) *Player {
	return w.Players.Get(id)
}

// TotalMass is the mass of every food pellet, blob and player.
func (w *World) TotalMass() float64 {
	return float64(len(w.Food.Items))*w.Food.Mass() + w.Mass.TotalMass() + w.Players.TotalMass()
}

// DrainEvents returns and clears the removals recorded since the last call.
func (w *World) DrainEvents() []Event {
	ev := w.events
	w.events = nil
	return ev
}

func (w *World) newCellID() uint32 {
	w.nextCellID++
	return w.nextCellID
}

// Spawn admits a new player with a single cell of the default mass.
func (w *World) Spawn(name string, screenW, screenH float64) (*Player, error) {
	name, err := ValidateName(name, w.cfg.Player.MaxNameLength)
	if err != nil {
		return nil, err
	}
	if w.Players.Len() >= w.cfg.World.MaxPlayers {
		return nil, ErrWorldFull
	}
	id, ok := w.ids.acquire()
	if !ok {
		return nil, ErrWorldFull
	}

	mass := w.cfg.Player.DefaultMass
	radius := geom.MassToRadius(mass)
	w.centres = w.centres[:0]
	for _, other := range w.Players.Items {
		w.centres = append(w.centres, geom.Point{X: other.X, Y: other.Y})
	}
	pos := w.sp.position(radius, w.cfg.World.SpawnFarthest, w.centres)

	now := w.now()
	p := &Player{
		ID:            id,
		Name:          name,
		Hue:           w.sp.hue(),
		Cells:         []Cell{newCell(w.newCellID(), pos.X, pos.Y, mass, minSpeed)},
		MassTotal:     mass,
		X:             pos.X,
		Y:             pos.Y,
		LastHeartbeat: now,
		JoinedAt:      now,
		PeakMass:      mass,
	}
	p.ScreenW, p.ScreenH = clampScreen(screenW), clampScreen(screenH)
	w.Players.add(p)
	w.indexDirty = true
	return p, nil
}

const maxScreen = 8192

func clampScreen(v float64) float64 {
	return geom.Clamp(v, 1, maxScreen)
}

// RemovePlayer drops a player and frees its ID.
func (w *World) RemovePlayer(id ID) (*Player, error) {
	p := w.Players.remove(id)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	w.ids.release(p.ID)
	w.indexDirty = true
	return p, nil
}

// SetTarget updates the movement target, relative to the player's centre,
// and counts as a heartbeat.
func (w *World) SetTarget(id ID, x, y float64) error {
	p := w.Players.Get(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	lim := w.cfg.World.Width + w.cfg.World.Height
	p.Target = geom.Point{X: geom.Clamp(x, -lim, lim), Y: geom.Clamp(y, -lim, lim)}
	p.LastHeartbeat = w.now()
	return nil
}

// Heartbeat refreshes a player's liveness without changing its target.
func (w *World) Heartbeat(id ID) error {
	p := w.Players.Get(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.LastHeartbeat = w.now()
	return nil
}

// Resize updates the player's reported screen size.
func (w *World) Resize(id ID, screenW, screenH float64) error {
	p := w.Players.Get(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.ScreenW, p.ScreenH = clampScreen(screenW), clampScreen(screenH)
	return nil
}

// Split performs a player-initiated split.
func (w *World) Split(id ID) error {
	p := w.Players.Get(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	w.userSplit(p)
	w.indexDirty = true
	return nil
}

// Eject fires a blob from every cell that can afford it. Cells below
// default mass + fire food are left untouched.
func (w *World) Eject(id ID) error {
	p := w.Players.Get(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	fire := w.cfg.Player.FireFood
	for i := range p.Cells {
		if p.Cells[i].Mass < w.cfg.Player.DefaultMass+fire {
			continue
		}
		if !w.Mass.add(p, &p.Cells[i], fire) {
			break
		}
		p.changeCellMass(i, -fire)
	}
	w.indexDirty = true
	return nil
}

// SetAdmin flags a player as admin.
func (w *World) SetAdmin(id ID, admin bool) error {
	p := w.Players.Get(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.Admin = admin
	return nil
}

// IsAdmin reports whether the player is a live admin.
func (w *World) IsAdmin(id ID) bool {
	p := w.Players.Get(id)
	return p != nil && p.Admin
}

// FindPlayerByName returns the first live player with the given name.
func (w *World) FindPlayerByName(name string) (ID, bool) {
	for _, p := range w.Players.Items {
		if p.Name == name {
			return p.ID, true
		}
	}
	return 0, false
}

// Balance runs the slow-rate bookkeeping: mass decay and rebalancing food
// and viruses toward the configured targets.
func (w *World) Balance() {
	pc := w.cfg.Player
	if w.Players.Len() > 0 {
		w.Players.shrink(pc.MassLossRate, pc.DefaultMass, pc.MinMassLoss)
	}
	w.balanceMass()
	w.indexDirty = true
}

func (w *World) balanceMass() {
	wc := w.cfg.World
	massDiff := wc.GameMass - w.TotalMass()
	free := wc.MaxFood - len(w.Food.Items)
	foodDiff := int(massDiff / wc.FoodMass)
	if foodDiff > free {
		foodDiff = free
	}
	switch {
	case foodDiff > 0:
		w.Food.Add(foodDiff)
	case foodDiff < 0 && len(w.Food.Items) > 0:
		w.Food.RemoveExcess(-foodDiff)
	}

	if n := wc.MaxVirus - len(w.Viruses.Items); n > 0 {
		w.Viruses.Add(n)
	}
}

func (w *World) eliminate(p *Player, now time.Time) {
	w.events = append(w.events, Event{
		Kind:     EventEliminated,
		Player:   p.ID,
		Name:     p.Name,
		EatenBy:  p.eatenBy,
		PeakMass: p.PeakMass,
		Played:   now.Sub(p.JoinedAt),
	})
	w.RemovePlayer(p.ID)
}

func (w *World) expireHeartbeats(now time.Time) {
	limit := w.cfg.Player.MaxHeartbeat
	if limit <= 0 {
		return
	}
	for i := 0; i < len(w.Players.Items); {
		p := w.Players.Items[i]
		if now.Sub(p.LastHeartbeat) <= limit {
			i++
			continue
		}
		w.events = append(w.events, Event{
			Kind:     EventTimedOut,
			Player:   p.ID,
			Name:     p.Name,
			Reason:   fmt.Sprintf("Last heartbeat received over %v ago.", limit),
			PeakMass: p.PeakMass,
			Played:   now.Sub(p.JoinedAt),
		})
		w.RemovePlayer(p.ID)
	}
}
