package protocol

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomView(rng *rand.Rand) *View {
	v := &View{
		Self: Self{ID: 1, X: 100, Y: -20, MassTotal: 30, Cells: []Cell{{X: 100, Y: -20, Mass: 30, Radius: 37}}},
	}
	id := uint16(2)
	next := func() uint16 {
		id += uint16(1 + rng.IntN(3))
		return id
	}
	coord := func() int16 { return int16(rng.IntN(10000) - 5000) }
	for range rng.IntN(5) {
		p := Player{ID: next(), Name: "p", Hue: uint8(rng.IntN(256))}
		for range 1 + rng.IntN(3) {
			p.Cells = append(p.Cells, Cell{X: coord(), Y: coord(), Mass: uint16(rng.IntN(500)), Radius: uint8(rng.IntN(255))})
		}
		v.Players = append(v.Players, p)
	}
	for range rng.IntN(20) {
		v.Food = append(v.Food, Food{ID: next(), X: coord(), Y: coord(), Radius: 10, Hue: uint8(rng.IntN(256))})
	}
	for range rng.IntN(5) {
		v.Mass = append(v.Mass, MassFood{ID: next(), X: coord(), Y: coord(), Mass: 20, Radius: 30, Hue: 4})
	}
	for range rng.IntN(5) {
		v.Viruses = append(v.Viruses, Virus{ID: next(), X: coord(), Y: coord(), Mass: 120, Radius: 70})
	}
	for range rng.IntN(3) {
		v.Portals = append(v.Portals, Portal{ID: next(), X: coord(), Y: coord(), Mass: 90, Radius: 60, State: uint8(rng.IntN(3))})
	}
	return v
}

func roundTrip(t *testing.T, f *Frame) *Frame {
	t.Helper()
	got, err := DecodeFrame(AppendFrame(nil, f))
	require.NoError(t, err)
	return got
}

func TestFrameRoundTrip(t *testing.T) {
	v := randomView(rand.New(rand.NewPCG(1, 2)))
	var f Frame
	NewTracker().Full(v, &f)

	got := roundTrip(t, &f)
	assert.False(t, got.Delta)
	assert.Equal(t, v.Self, got.Self)
	assert.Equal(t, len(v.Players), len(got.Players.Added))
	assert.Equal(t, len(v.Food), len(got.Food.Added))

	var client View
	client.Apply(got)
	assert.Equal(t, v.Players, nilIfEmpty(client.Players))
	assert.Equal(t, v.Food, nilIfEmpty(client.Food))
	assert.Equal(t, v.Portals, nilIfEmpty(client.Portals))
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// A full frame and a delta against an empty baseline describe the same view.
func TestFullEqualsDeltaFromEmpty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 9))
	for i := 0; i < 200; i++ {
		v := randomView(rng)

		var full, delta Frame
		NewTracker().Full(v, &full)
		NewTracker().Delta(v, &delta)
		require.True(t, delta.Delta)

		var a, b View
		a.Apply(roundTrip(t, &full))
		b.Apply(roundTrip(t, &delta))
		require.Equal(t, a, b, "iteration %d", i)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	_, err := DecodeFrame(nil)
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeFrame([]byte{0x77})
	assert.ErrorIs(t, err, ErrUnknownOpcode)

	b := AppendFrame(nil, &Frame{})
	_, err = DecodeFrame(b[:len(b)-1])
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeFrame(append(b, 0))
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestApplyDelta(t *testing.T) {
	var v View
	v.Apply(&Frame{Food: Section[Food]{Added: []Food{{ID: 5}, {ID: 3}, {ID: 9}}}})
	v.Apply(&Frame{Delta: true, Food: Section[Food]{
		Added:   []Food{{ID: 4}},
		Updated: []Food{{ID: 9, X: 10}},
		Removed: []uint16{3},
	}})
	assert.Equal(t, []Food{{ID: 4}, {ID: 5}, {ID: 9, X: 10}}, v.Food)

	v.Apply(&Frame{Food: Section[Food]{Added: []Food{{ID: 1}}}})
	assert.Equal(t, []Food{{ID: 1}}, v.Food)
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, int16(12), Coord(11.6))
	assert.Equal(t, int16(32767), Coord(1e9))
	assert.Equal(t, int16(-32768), Coord(-1e9))
	assert.Equal(t, uint16(0), Mass(-3))
	assert.Equal(t, uint16(65535), Mass(1e7))
	assert.Equal(t, uint8(255), Radius(400))
	assert.Equal(t, uint8(0), Radius(-1))
}

func TestStrTruncatesAtRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 200) // 400 bytes
	w := NewWriter(nil)
	w.Str(long)
	r := NewReader(w.Bytes())
	got := r.Str()
	require.NoError(t, r.Done())
	assert.Equal(t, 254, len(got))
	assert.Equal(t, strings.Repeat("é", 127), got)
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{1})
	assert.Equal(t, uint16(0), r.U16())
	assert.Equal(t, uint8(0), r.U8())
	assert.ErrorIs(t, r.Err(), ErrShortFrame)
}
