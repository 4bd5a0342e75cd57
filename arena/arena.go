// Package arena runs the single-writer scheduler that owns the world. Every
// client action arrives as a command on Inbox and is applied between the
// physics, balancing and broadcast ticks, so nothing else touches the world.
package arena

import (
	"context"
	"errors"
	"log"
	"time"

	"arena-server/config"
	"arena-server/game"
	"arena-server/protocol"
	"arena-server/telemetry"
)

// ErrSlowConsumer is returned by Conn.Send when the connection's buffer is
// full and the message was dropped.
var ErrSlowConsumer = errors.New("arena: send buffer full")

// Conn is the transport side of one connection. Send must not block.
type Conn interface {
	Send([]byte) error
	Close() error
}

// Recorder receives fire-and-forget side records. Implementations must not
// block.
type Recorder interface {
	Chat(sender, message string)
	Session(name string, peakMass float64, played time.Duration, eatenBy string)
}

type nopRecorder struct{}

func (nopRecorder) Chat(string, string)                            {}
func (nopRecorder) Session(string, float64, time.Duration, string) {}

const inboxSize = 1024

// Arena owns the world and every connection attached to it.
type Arena struct {
	Inbox chan any

	cfg      *config.Config
	world    *game.World
	reg      *Registry
	recorder Recorder
	stats    *telemetry.Recorder
	now      func() time.Time

	leaderboard game.Leaderboard
	boardDirty  bool
	passBoard   []byte
	pending     []ConnID
	ready       chan struct{}
	done        chan struct{}

	// Scratch reused across frames
	vis     game.VisibleSet
	view    protocol.View
	frame   protocol.Frame
	cellBuf []protocol.Cell
	out     []byte
}

// Option configures an Arena.
type Option func(*Arena)

// WithRecorder sets where chat lines and finished sessions are recorded.
func WithRecorder(r Recorder) Option {
	return func(a *Arena) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithTelemetry sets the tick statistics recorder.
func WithTelemetry(t *telemetry.Recorder) Option {
	return func(a *Arena) { a.stats = t }
}

// WithClock sets the clock used to time ticks.
func WithClock(now func() time.Time) Option {
	return func(a *Arena) { a.now = now }
}

// New creates an arena around w. The world is populated by one Balance call.
func New(w *game.World, opts ...Option) *Arena {
	a := &Arena{
		Inbox:    make(chan any, inboxSize),
		cfg:      w.Config(),
		world:    w,
		reg:      NewRegistry(),
		recorder: nopRecorder{},
		now:      time.Now,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	close(a.ready)
	for _, opt := range opts {
		opt(a)
	}
	w.Balance()
	return a
}

// World returns the world. Only the scheduler goroutine may use it while Run
// is active.
func (a *Arena) World() *game.World { return a.world }

// Registry returns the connection registry. Same ownership rule as World.
func (a *Arena) Registry() *Registry { return a.reg }

// Done is closed once Run has returned.
func (a *Arena) Done() <-chan struct{} { return a.done }

// Submit queues a command, blocking while the inbox is full. It returns
// false once the arena has stopped.
func (a *Arena) Submit(cmd any) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.Inbox <- cmd:
		return true
	case <-a.done:
		return false
	}
}

// TrySubmit queues a command without blocking. Dropped commands return false.
func (a *Arena) TrySubmit(cmd any) bool {
	select {
	case a.Inbox <- cmd:
		return true
	default:
		return false
	}
}

func every(rate int) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	return time.Second / time.Duration(rate)
}

// Run drives the three clocks and the inbox until ctx is cancelled.
func (a *Arena) Run(ctx context.Context) {
	defer close(a.done)

	nc := a.cfg.Network
	tick := time.NewTicker(every(nc.TickRate))
	defer tick.Stop()
	balance := time.NewTicker(every(nc.BalanceRate))
	defer balance.Stop()
	update := time.NewTicker(every(nc.UpdateRate))
	defer update.Stop()

	log.Printf("arena running: %d Hz physics, %d Hz balance, %d Hz updates", nc.TickRate, nc.BalanceRate, nc.UpdateRate)
	for {
		// A pending broadcast pass continues one batch per loop turn.
		var ready <-chan struct{}
		if len(a.pending) > 0 {
			ready = a.ready
		}
		select {
		case <-ctx.Done():
			a.shutdown()
			return
		case cmd := <-a.Inbox:
			a.Handle(cmd)
		case <-tick.C:
			a.Tick()
		case <-balance.C:
			a.Balance()
		case <-update.C:
			a.Broadcast()
		case <-ready:
			a.dispatch(a.cfg.Network.BatchSize)
		}
	}
}

// Tick advances the physics one step and delivers its removals.
func (a *Arena) Tick() {
	start := time.Now()
	a.world.Tick()
	a.handleWorldEvents(a.world.DrainEvents())
	a.stats.ObserveTick(time.Since(start))
}

// Balance runs the slow-rate bookkeeping: mass decay, food and virus top-up,
// leaderboard and telemetry.
func (a *Arena) Balance() {
	a.world.Balance()
	if a.leaderboard.Update(&a.world.Players) {
		a.boardDirty = true
	}
	a.flushTelemetry()
}

func (a *Arena) flushTelemetry() {
	if a.stats == nil {
		return
	}
	w := a.world
	err := a.stats.Flush(telemetry.WorldStats{
		Time:       a.now().UTC().Format(time.RFC3339),
		Tick:       w.TickCount(),
		Players:    w.Players.Len(),
		Spectators: a.reg.Spectators(),
		Food:       len(w.Food.Items),
		MassFood:   len(w.Mass.Items),
		Viruses:    len(w.Viruses.Items),
		Portals:    len(w.Portals.Items),
		WorldMass:  w.TotalMass(),
	})
	if err != nil {
		log.Printf("telemetry: %v", err)
	}
}

func (a *Arena) shutdown() {
	msg := protocol.MustEvent(protocol.EventServerMsg, protocol.Reason{Message: "Server shutting down."})
	for _, cs := range a.reg.all() {
		cs.conn.Send(msg)
		cs.conn.Close()
		a.dropConn(cs, false)
	}
	log.Printf("arena stopped")
}
