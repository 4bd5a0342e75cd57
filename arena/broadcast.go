package arena

import (
	"errors"
	"log"

	"arena-server/game"
	"arena-server/protocol"
)

// Broadcast starts a broadcast pass over every connection and dispatches its
// first batch. The rest follows one batch per scheduler turn. A pass still
// in progress is left to finish; it already reads current state.
func (a *Arena) Broadcast() {
	if len(a.pending) > 0 {
		return
	}
	a.pending = append(a.pending[:0], a.reg.order...)
	a.passBoard = nil
	if a.boardDirty {
		a.passBoard = a.leaderboardFrame()
		a.boardDirty = false
	}
	a.dispatch(a.cfg.Network.BatchSize)
}

// Flush dispatches whatever remains of the current pass.
func (a *Arena) Flush() {
	for len(a.pending) > 0 {
		a.dispatch(len(a.pending))
	}
}

// Pending returns how many connections the current pass has yet to serve.
func (a *Arena) Pending() int { return len(a.pending) }

func (a *Arena) dispatch(n int) {
	if n <= 0 {
		n = 1
	}
	if n > len(a.pending) {
		n = len(a.pending)
	}
	batch := a.pending[:n]
	for _, id := range batch {
		cs := a.reg.get(id)
		if cs == nil || (!cs.playing() && !cs.spectator) {
			continue
		}
		if a.passBoard != nil {
			cs.conn.Send(a.passBoard)
		}
		a.sendFrame(cs)
	}
	a.pending = append(a.pending[:0], a.pending[n:]...)
}

func (a *Arena) sendFrame(cs *connState) {
	b := a.frameFor(cs)
	if err := cs.conn.Send(b); err != nil {
		// The client may not hold this frame, so the next one must be full.
		cs.tracker.Reset()
		if !errors.Is(err, ErrSlowConsumer) {
			a.dropConn(cs, true)
		}
	}
}

// BroadcastFrame returns the next world frame for one connection, advancing
// its delta baseline.
func (a *Arena) BroadcastFrame(id ConnID) ([]byte, bool) {
	cs := a.reg.get(id)
	if cs == nil {
		return nil, false
	}
	return a.frameFor(cs), true
}

func (a *Arena) frameFor(cs *connState) []byte {
	a.buildView(cs)
	if a.cfg.Network.Delta {
		cs.tracker.Next(&a.view, &a.frame)
	} else {
		cs.tracker.Full(&a.view, &a.frame)
	}
	// Conn implementations may keep the slice, so it is not reused.
	return protocol.AppendFrame(make([]byte, 0, 256), &a.frame)
}

func (a *Arena) cells(cells []game.Cell) []protocol.Cell {
	start := len(a.cellBuf)
	for _, c := range cells {
		a.cellBuf = append(a.cellBuf, protocol.Cell{
			X:      protocol.Coord(c.X),
			Y:      protocol.Coord(c.Y),
			Mass:   protocol.Mass(c.Mass),
			Radius: protocol.Radius(c.Radius),
		})
	}
	return a.cellBuf[start:len(a.cellBuf):len(a.cellBuf)]
}

// buildView fills a.view with what cs sees right now.
func (a *Arena) buildView(cs *connState) {
	w := a.world
	v := &a.view
	v.Reset()
	a.cellBuf = a.cellBuf[:0]

	var exclude game.ID
	p := w.Player(cs.player)
	if p != nil {
		exclude = p.ID
		v.Self = protocol.Self{
			ID:        uint16(p.ID),
			X:         protocol.Coord(p.X),
			Y:         protocol.Coord(p.Y),
			MassTotal: protocol.Mass(p.MassTotal),
			Cells:     a.cells(p.Cells),
		}
		w.Visible(w.ViewRect(p), exclude, &a.vis)
	} else {
		v.Self = protocol.Self{
			X: protocol.Coord(a.cfg.World.Width / 2),
			Y: protocol.Coord(a.cfg.World.Height / 2),
		}
		w.Visible(w.SpectatorRect(cs.screenW, cs.screenH), exclude, &a.vis)
	}

	for _, i := range a.vis.Players {
		o := w.Players.Items[i]
		v.Players = append(v.Players, protocol.Player{
			ID:    uint16(o.ID),
			Name:  o.Name,
			Hue:   o.Hue,
			Cells: a.cells(o.Cells),
		})
	}
	for _, i := range a.vis.Food {
		f := &w.Food.Items[i]
		v.Food = append(v.Food, protocol.Food{
			ID: uint16(f.ID), X: protocol.Coord(f.X), Y: protocol.Coord(f.Y),
			Radius: protocol.Radius(f.Radius), Hue: f.Hue,
		})
	}
	for _, i := range a.vis.Mass {
		m := &w.Mass.Items[i]
		v.Mass = append(v.Mass, protocol.MassFood{
			ID: uint16(m.ID), X: protocol.Coord(m.X), Y: protocol.Coord(m.Y),
			Mass: protocol.Mass(m.Mass), Radius: protocol.Radius(m.Radius), Hue: m.Hue,
		})
	}
	for _, i := range a.vis.Viruses {
		vr := &w.Viruses.Items[i]
		v.Viruses = append(v.Viruses, protocol.Virus{
			ID: uint16(vr.ID), X: protocol.Coord(vr.X), Y: protocol.Coord(vr.Y),
			Mass: protocol.Mass(vr.Mass), Radius: protocol.Radius(vr.Radius),
		})
	}
	for _, i := range a.vis.Portals {
		pt := &w.Portals.Items[i]
		v.Portals = append(v.Portals, protocol.Portal{
			ID: uint16(pt.ID), X: protocol.Coord(pt.X), Y: protocol.Coord(pt.Y),
			Mass: protocol.Mass(pt.Mass), Radius: protocol.Radius(pt.Radius), State: uint8(pt.State),
		})
	}
}

func (a *Arena) leaderboardFrame() []byte {
	entries := make([]protocol.LeaderEntry, 0, len(a.leaderboard.Entries))
	for _, e := range a.leaderboard.Entries {
		entries = append(entries, protocol.LeaderEntry{ID: uint16(e.ID), Name: e.Name})
	}
	return protocol.AppendLeaderboard(nil, a.leaderboard.Players, entries)
}

func (a *Arena) sendLeaderboard(cs *connState) {
	cs.conn.Send(a.leaderboardFrame())
}

func (a *Arena) broadcastEvent(t string, payload any) {
	a.broadcastEventExcept(0, t, payload)
}

// broadcastEventExcept sends an event to every connection but skip.
func (a *Arena) broadcastEventExcept(skip ConnID, t string, payload any) {
	msg := protocol.MustEvent(t, payload)
	for _, id := range a.reg.order {
		if id == skip {
			continue
		}
		a.reg.conns[id].conn.Send(msg)
	}
}

// handleWorldEvents delivers eliminations and heartbeat timeouts.
func (a *Arena) handleWorldEvents(events []game.Event) {
	for _, ev := range events {
		a.recordSession(ev.Name, ev.PeakMass, ev.Played, ev.EatenBy)
		cs := a.reg.byPlayerID(ev.Player)
		switch ev.Kind {
		case game.EventEliminated:
			if cs != nil {
				a.reg.bind(cs, 0)
				cs.conn.Send(protocol.MustEvent(protocol.EventRIP, nil))
			}
			a.broadcastEvent(protocol.EventPlayerDied, protocol.PlayerNotice{
				ID: uint16(ev.Player), Name: ev.Name, EatenBy: ev.EatenBy,
			})
		case game.EventTimedOut:
			if cs != nil {
				a.reg.bind(cs, 0)
				cs.conn.Send(protocol.MustEvent(protocol.EventKick, protocol.Reason{Message: ev.Reason}))
				cs.conn.Close()
				a.reg.remove(cs.id)
			}
			log.Printf("player %q (%d) timed out", ev.Name, ev.Player)
			a.broadcastEvent(protocol.EventPlayerDisconnect, protocol.PlayerNotice{ID: uint16(ev.Player), Name: ev.Name})
		}
	}
}
