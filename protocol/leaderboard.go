package protocol

// LeaderEntry is one leaderboard row.
type LeaderEntry struct {
	ID   uint16
	Name string
}

// AppendLeaderboard encodes [OpLeaderboard][u16 players][u8 n]{[u16 id][str name]}.
func AppendLeaderboard(dst []byte, players int, entries []LeaderEntry) []byte {
	w := NewWriter(dst)
	w.U8(OpLeaderboard)
	w.U16(count(players))
	if len(entries) > MaxString {
		entries = entries[:MaxString]
	}
	w.U8(uint8(len(entries)))
	for _, e := range entries {
		w.U16(e.ID)
		w.Str(e.Name)
	}
	return w.Bytes()
}

// DecodeLeaderboard parses a leaderboard frame.
func DecodeLeaderboard(b []byte) (players int, entries []LeaderEntry, err error) {
	r := NewReader(b)
	if op := r.U8(); r.Err() == nil && op != OpLeaderboard {
		return 0, nil, ErrUnknownOpcode
	}
	players = int(r.U16())
	n := int(r.U8())
	for i := 0; i < n && r.Err() == nil; i++ {
		entries = append(entries, LeaderEntry{ID: r.U16(), Name: r.Str()})
	}
	if err := r.Done(); err != nil {
		return 0, nil, err
	}
	return players, entries, nil
}
