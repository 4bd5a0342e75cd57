package protocol

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// MaxString is the longest string a u8 length prefix can carry.
const MaxString = 255

// Writer appends little-endian fields to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter starts writing after the existing contents of dst.
func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst}
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *Writer) I16(v int16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v)) }

// Str writes a u8 length prefixed UTF-8 string, cut at a rune boundary when
// longer than MaxString bytes.
func (w *Writer) Str(s string) {
	if len(s) > MaxString {
		cut := MaxString
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader consumes little-endian fields. The first failure sticks: later
// reads return zero values and Err reports it.
type Reader struct {
	b   []byte
	off int
	err error
}

// NewReader reads from b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.b)-r.off < n {
		r.err = ErrShortFrame
		return false
	}
	return true
}

func (r *Reader) U8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *Reader) U16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) Str() string {
	n := int(r.U8())
	if !r.need(n) {
		return ""
	}
	s := string(r.b[r.off : r.off+n])
	r.off += n
	return s
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.b) - r.off }

// Err returns the first read failure.
func (r *Reader) Err() error { return r.err }

// Done reports the sticky error, or ErrTrailingBytes when input is left.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.b) {
		return ErrTrailingBytes
	}
	return nil
}

// Coord quantises a world coordinate to the wire.
func Coord(v float64) int16 {
	return int16(math.Round(clamp(v, math.MinInt16, math.MaxInt16)))
}

// Mass quantises a mass to the wire.
func Mass(v float64) uint16 {
	return uint16(math.Round(clamp(v, 0, math.MaxUint16)))
}

// Radius quantises a radius to the wire, saturating at 255.
func Radius(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, math.MaxUint8)))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
