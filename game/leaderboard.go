package game

// LeaderboardSize is how many players the leaderboard lists.
const LeaderboardSize = 10

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	ID   ID
	Name string
}

// Leaderboard tracks the top players and whether the ranking changed.
type Leaderboard struct {
	Entries []LeaderboardEntry
	Players int
}

// Update recomputes the ranking. It returns true when the ranked IDs or
// names differ from the previous call.
func (l *Leaderboard) Update(pm *PlayerManager) bool {
	top := pm.Top(LeaderboardSize)
	changed := len(top) != len(l.Entries)
	if !changed {
		for i, p := range top {
			if l.Entries[i].ID != p.ID || l.Entries[i].Name != p.Name {
				changed = true
				break
			}
		}
	}
	l.Players = pm.Len()
	if !changed {
		return false
	}
	l.Entries = l.Entries[:0]
	for _, p := range top {
		l.Entries = append(l.Entries, LeaderboardEntry{ID: p.ID, Name: p.Name})
	}
	return true
}
