package arena

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arena-server/game"
	"arena-server/protocol"
)

// Connect attaches a transport connection.
type Connect struct {
	ID   ConnID
	Conn Conn
	Addr string
}

// Disconnect detaches a connection and removes its player.
type Disconnect struct {
	ID ConnID
}

// Join spawns a player for the connection. Admin is set when the client
// presented a valid admin token.
type Join struct {
	ID               ConnID
	Name             string
	ScreenW, ScreenH float64
	Admin            bool
}

// Spectate switches the connection to watching the world centre.
type Spectate struct {
	ID               ConnID
	ScreenW, ScreenH float64
}

// Target sets the movement target relative to the player's centre.
type Target struct {
	ID   ConnID
	X, Y float64
}

type Split struct{ ID ConnID }

type Eject struct{ ID ConnID }

type Resize struct {
	ID               ConnID
	ScreenW, ScreenH float64
}

type Chat struct {
	ID   ConnID
	Text string
}

// GrantAdmin marks the connection admin after a verified login.
type GrantAdmin struct {
	ID ConnID
}

// Kick removes the named player on behalf of an admin connection.
type Kick struct {
	ID     ConnID
	Name   string
	Reason string
}

type Ping struct{ ID ConnID }

// Handle applies one command. Bad input is logged and dropped.
func (a *Arena) Handle(cmd any) {
	switch c := cmd.(type) {
	case Connect:
		a.connect(c)
	case Disconnect:
		if cs := a.reg.get(c.ID); cs != nil {
			a.dropConn(cs, true)
		}
	case Join:
		a.join(c)
	case Spectate:
		a.spectate(c)
	case Target:
		if cs := a.playing(c.ID); cs != nil {
			a.world.SetTarget(cs.player, c.X, c.Y)
		}
	case Split:
		if cs := a.playing(c.ID); cs != nil {
			a.world.Split(cs.player)
		}
	case Eject:
		if cs := a.playing(c.ID); cs != nil {
			a.world.Eject(cs.player)
		}
	case Resize:
		a.resize(c)
	case Chat:
		a.chat(c)
	case GrantAdmin:
		a.grantAdmin(c)
	case Kick:
		a.kick(c)
	case Ping:
		if cs := a.reg.get(c.ID); cs != nil {
			cs.conn.Send(protocol.AppendPong(nil))
			if cs.playing() {
				a.world.Heartbeat(cs.player)
			}
		}
	default:
		log.Printf("arena: unknown command %T", cmd)
	}
}

func (a *Arena) playing(id ConnID) *connState {
	cs := a.reg.get(id)
	if cs == nil || !cs.playing() {
		return nil
	}
	return cs
}

func (a *Arena) connect(c Connect) {
	cs := &connState{id: c.ID, conn: c.Conn, addr: c.Addr, tracker: protocol.NewTracker()}
	if !a.reg.add(cs) {
		log.Printf("arena: duplicate connection %d from %s rejected", c.ID, c.Addr)
		c.Conn.Send(protocol.MustEvent(protocol.EventKick, protocol.Reason{Message: "Duplicate connection."}))
		c.Conn.Close()
	}
}

// dropConn forgets a connection, removing its player and announcing the
// departure when announce is set.
func (a *Arena) dropConn(cs *connState, announce bool) {
	a.reg.remove(cs.id)
	if !cs.playing() {
		return
	}
	p, err := a.world.RemovePlayer(cs.player)
	if err != nil {
		return
	}
	a.recordSession(p.Name, p.PeakMass, a.world.Now().Sub(p.JoinedAt), "")
	log.Printf("player %q (%d) disconnected", p.Name, p.ID)
	if announce {
		a.broadcastEvent(protocol.EventPlayerDisconnect, protocol.PlayerNotice{ID: uint16(p.ID), Name: p.Name})
	}
}

func (a *Arena) join(c Join) {
	cs := a.reg.get(c.ID)
	if cs == nil {
		return
	}
	if cs.playing() {
		return
	}
	p, err := a.world.Spawn(c.Name, c.ScreenW, c.ScreenH)
	if err != nil {
		reason := "Could not join."
		switch {
		case errors.Is(err, game.ErrInvalidName):
			reason = "Invalid username."
		case errors.Is(err, game.ErrWorldFull):
			reason = "The world is full."
		}
		log.Printf("join rejected for %s: %v", cs.addr, err)
		a.kickConn(cs, reason)
		return
	}
	cs.spectator = false
	cs.screenW, cs.screenH = p.ScreenW, p.ScreenH
	cs.admin = cs.admin || c.Admin
	a.reg.bind(cs, p.ID)
	a.world.SetAdmin(p.ID, cs.admin)
	cs.tracker.Reset()

	cs.conn.Send(protocol.MustEvent(protocol.EventWelcome, protocol.Welcome{
		ID:         uint16(p.ID),
		Name:       p.Name,
		GameWidth:  a.cfg.World.Width,
		GameHeight: a.cfg.World.Height,
		Hue:        int(p.Hue),
	}))
	a.sendLeaderboard(cs)
	a.broadcastEventExcept(cs.id, protocol.EventPlayerJoin, protocol.PlayerNotice{ID: uint16(p.ID), Name: p.Name})
	log.Printf("player %q (%d) joined from %s", p.Name, p.ID, cs.addr)
}

func (a *Arena) spectate(c Spectate) {
	cs := a.reg.get(c.ID)
	if cs == nil || cs.playing() {
		return
	}
	cs.spectator = true
	cs.screenW, cs.screenH = c.ScreenW, c.ScreenH
	cs.tracker.Reset()
	cs.conn.Send(protocol.MustEvent(protocol.EventWelcome, protocol.Welcome{
		Spectator:  true,
		GameWidth:  a.cfg.World.Width,
		GameHeight: a.cfg.World.Height,
	}))
	a.sendLeaderboard(cs)
}

func (a *Arena) resize(c Resize) {
	cs := a.reg.get(c.ID)
	if cs == nil {
		return
	}
	cs.screenW, cs.screenH = c.ScreenW, c.ScreenH
	if cs.playing() {
		a.world.Resize(cs.player, c.ScreenW, c.ScreenH)
	}
}

func (a *Arena) chat(c Chat) {
	cs := a.playing(c.ID)
	if cs == nil {
		return
	}
	p := a.world.Player(cs.player)
	text := game.SanitizeChat(c.Text)
	if p == nil || text == "" {
		return
	}
	a.recorder.Chat(p.Name, text)
	a.broadcastEventExcept(cs.id, protocol.EventChat, protocol.Chat{Sender: p.Name, Text: text, Admin: p.Admin})
}

func (a *Arena) grantAdmin(c GrantAdmin) {
	cs := a.reg.get(c.ID)
	if cs == nil {
		return
	}
	cs.admin = true
	name := "A spectator"
	if cs.playing() {
		a.world.SetAdmin(cs.player, true)
		if p := a.world.Player(cs.player); p != nil {
			name = p.Name
		}
	}
	log.Printf("%s (%s) logged in as admin", name, cs.addr)
	cs.conn.Send(protocol.MustEvent(protocol.EventServerMsg, protocol.Reason{Message: "Welcome back, admin."}))
	a.broadcastEventExcept(cs.id, protocol.EventServerMsg, protocol.Reason{Message: name + " just logged in as an admin."})
}

func (a *Arena) kick(c Kick) {
	cs := a.reg.get(c.ID)
	if cs == nil {
		return
	}
	reply := func(msg string) {
		cs.conn.Send(protocol.MustEvent(protocol.EventServerMsg, protocol.Reason{Message: msg}))
	}
	if !cs.admin {
		reply("You are not permitted to use this command.")
		return
	}
	target, ok := a.world.FindPlayerByName(c.Name)
	if !ok {
		reply(fmt.Sprintf("Could not locate user %q.", c.Name))
		return
	}
	if a.IsAdmin(target) {
		reply("You cannot kick an admin.")
		return
	}
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		reason = "Kicked by an admin."
	}
	a.KickPlayer(target, reason)
	reply(fmt.Sprintf("User %q was kicked.", c.Name))
}

// IsAdmin reports whether the player is an admin.
func (a *Arena) IsAdmin(id game.ID) bool {
	return a.world.IsAdmin(id)
}

// KickPlayer disconnects the player's connection with a reason. It returns
// false when no connection controls the player.
func (a *Arena) KickPlayer(id game.ID, reason string) bool {
	cs := a.reg.byPlayerID(id)
	if cs == nil {
		return false
	}
	if p := a.world.Player(id); p != nil {
		log.Printf("player %q (%d) kicked: %s", p.Name, id, reason)
	}
	a.kickConn(cs, reason)
	return true
}

// kickConn tells the client why, closes it and forgets it.
func (a *Arena) kickConn(cs *connState, reason string) {
	cs.conn.Send(protocol.MustEvent(protocol.EventKick, protocol.Reason{Message: reason}))
	cs.conn.Close()
	a.dropConn(cs, true)
}

func (a *Arena) recordSession(name string, peak float64, played time.Duration, eatenBy string) {
	a.recorder.Session(name, peak, played, eatenBy)
}
