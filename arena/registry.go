package arena

import (
	"slices"

	"arena-server/game"
	"arena-server/protocol"
)

// ConnID identifies one transport connection for its whole life.
type ConnID uint64

// connState is everything the arena knows about one connection.
type connState struct {
	id        ConnID
	conn      Conn
	addr      string
	player    game.ID // zero while not playing
	spectator bool
	admin     bool
	screenW   float64
	screenH   float64
	tracker   *protocol.Tracker
}

func (cs *connState) playing() bool { return cs.player != 0 }

// Registry maps connections to their state and to the players they control.
// It is owned by the scheduler.
type Registry struct {
	conns    map[ConnID]*connState
	byPlayer map[game.ID]ConnID
	order    []ConnID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[ConnID]*connState),
		byPlayer: make(map[game.ID]ConnID),
	}
}

func (r *Registry) add(cs *connState) bool {
	if _, ok := r.conns[cs.id]; ok {
		return false
	}
	r.conns[cs.id] = cs
	i, _ := slices.BinarySearch(r.order, cs.id)
	r.order = slices.Insert(r.order, i, cs.id)
	return true
}

func (r *Registry) remove(id ConnID) *connState {
	cs, ok := r.conns[id]
	if !ok {
		return nil
	}
	delete(r.conns, id)
	if cs.playing() {
		delete(r.byPlayer, cs.player)
	}
	if i, found := slices.BinarySearch(r.order, id); found {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return cs
}

func (r *Registry) bind(cs *connState, player game.ID) {
	if cs.playing() {
		delete(r.byPlayer, cs.player)
	}
	cs.player = player
	if player != 0 {
		r.byPlayer[player] = cs.id
	}
}

func (r *Registry) get(id ConnID) *connState { return r.conns[id] }

func (r *Registry) byPlayerID(id game.ID) *connState {
	cid, ok := r.byPlayer[id]
	if !ok {
		return nil
	}
	return r.conns[cid]
}

// all returns the connections in ID order.
func (r *Registry) all() []*connState {
	out := make([]*connState, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.conns[id])
	}
	return out
}

// IDs returns the connection IDs in ascending order.
func (r *Registry) IDs() []ConnID {
	return slices.Clone(r.order)
}

// Len returns the number of connections.
func (r *Registry) Len() int { return len(r.conns) }

// Spectators returns how many connections are spectating.
func (r *Registry) Spectators() int {
	n := 0
	for _, cs := range r.conns {
		if cs.spectator {
			n++
		}
	}
	return n
}

// Player returns the player a connection controls, or zero.
func (r *Registry) Player(id ConnID) game.ID {
	if cs := r.conns[id]; cs != nil {
		return cs.player
	}
	return 0
}
