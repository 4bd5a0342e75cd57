package game

// ID identifies a player, food, mass food, virus or portal on the wire. Zero
// is never handed out.
type ID uint16

const maxLiveIDs = 1<<16 - 1

// idPool hands out unique non-zero IDs and recycles released ones.
type idPool struct {
	next uint16
	used [1 << 10]uint64
	live int
}

// acquire returns a free ID, or false when all IDs are live.
func (p *idPool) acquire() (ID, bool) {
	if p.live >= maxLiveIDs {
		return 0, false
	}
	for {
		p.next++
		if p.next == 0 {
			continue
		}
		word, bit := p.next>>6, uint64(1)<<(p.next&63)
		if p.used[word]&bit == 0 {
			p.used[word] |= bit
			p.live++
			return ID(p.next), true
		}
	}
}

func (p *idPool) release(id ID) {
	word, bit := uint16(id)>>6, uint64(1)<<(uint16(id)&63)
	if id == 0 || p.used[word]&bit == 0 {
		return
	}
	p.used[word] &^= bit
	p.live--
}
