package game

import (
	"log"
	"time"

	"arena-server/config"
	"arena-server/geom"
)

// PortalState is a portal's lifecycle phase.
type PortalState uint8

const (
	PortalHidden PortalState = iota
	PortalWarning
	PortalActive
	PortalDisappearing
)

func (s PortalState) String() string {
	switch s {
	case PortalWarning:
		return "warning"
	case PortalActive:
		return "active"
	case PortalDisappearing:
		return "disappearing"
	}
	return "hidden"
}

// Portal is a timed teleport hazard spawned in waves.
type Portal struct {
	ID        ID
	X, Y      float64
	Mass      float64
	Radius    float64
	CreatedAt time.Time
	State     PortalState
	Opacity   float64
}

// update derives the state from wall-clock time since creation.
func (p *Portal) update(now time.Time, warning, active time.Duration) {
	elapsed := now.Sub(p.CreatedAt)
	switch {
	case elapsed < warning:
		p.State, p.Opacity = PortalWarning, 0.3
	case elapsed < warning+active:
		p.State, p.Opacity = PortalActive, 1
	default:
		p.State, p.Opacity = PortalDisappearing, 0
	}
}

// Visible reports whether clients should see the portal.
func (p *Portal) Visible() bool {
	return p.State == PortalWarning || p.State == PortalActive
}

// PortalManager runs the wave cycle: spawn a wave, let it expire, wait for
// the interval, spawn again.
type PortalManager struct {
	sp  *spawner
	cfg config.PortalConfig
	max int

	Items      []Portal
	waveActive bool
	lastWave   time.Time
	Waves      int

	taken []geom.Point
	gone  []int
}

func newPortalManager(sp *spawner, cfg config.PortalConfig, max int, now time.Time) PortalManager {
	return PortalManager{
		sp:  sp,
		cfg: cfg,
		max: max,
		// The first wave is due immediately
		lastWave: now.Add(-cfg.WaveInterval),
	}
}

// WaveActive reports whether a wave is currently alive.
func (m *PortalManager) WaveActive() bool {
	return m.waveActive
}

// Update advances every portal, purges the ones that finished, and starts a
// new wave when due. Returns the number of portals spawned.
func (m *PortalManager) Update(now time.Time) int {
	m.gone = m.gone[:0]
	for i := range m.Items {
		m.Items[i].update(now, m.cfg.WarningDuration, m.cfg.ActiveDuration)
		if m.Items[i].State == PortalDisappearing {
			m.gone = append(m.gone, i)
		}
	}
	if len(m.gone) > 0 {
		m.Items = removeIndexes(m.Items, m.gone, func(p *Portal) { m.sp.ids.release(p.ID) })
	}

	if m.waveActive && len(m.Items) == 0 {
		m.waveActive = false
		m.lastWave = now
	}
	if !m.waveActive && now.Sub(m.lastWave) >= m.cfg.WaveInterval {
		return m.spawnWave(now)
	}
	return 0
}

func (m *PortalManager) spawnWave(now time.Time) int {
	n := m.cfg.MaxSimultaneous
	if free := m.max - len(m.Items); n > free {
		n = free
	}
	m.taken = m.taken[:0]
	spawned := 0
	for i := 0; i < n; i++ {
		id, ok := m.sp.ids.acquire()
		if !ok {
			break
		}
		mass := geom.RandomInRange(m.sp.rng, m.cfg.MassFrom, m.cfg.MassTo)
		radius := geom.MassToRadius(mass)
		pos := m.sp.position(radius, m.cfg.Uniform, m.taken)
		m.taken = append(m.taken, pos)
		p := Portal{ID: id, X: pos.X, Y: pos.Y, Mass: mass, Radius: radius, CreatedAt: now}
		p.update(now, m.cfg.WarningDuration, m.cfg.ActiveDuration)
		m.Items = append(m.Items, p)
		spawned++
	}
	if spawned > 0 {
		m.waveActive = true
		m.Waves++
		log.Printf("portal wave %d spawned with %d portals", m.Waves, spawned)
	}
	m.lastWave = now
	return spawned
}
