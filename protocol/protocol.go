// Package protocol defines the arena wire format: a fixed opcode table,
// compact little-endian world frames with per-connection delta tracking, and
// msgpack encoded control events.
package protocol

import "errors"

// Client to server opcodes.
const (
	OpSpawn    byte = 0x00 // [u16 screenW][u16 screenH][str name][str token]
	OpSpectate byte = 0x01 // [u16 screenW][u16 screenH]
	OpPing     byte = 0x02
	OpResize   byte = 0x03 // [u16 screenW][u16 screenH]
	OpTarget   byte = 0x10 // [i16 x][i16 y] relative to the player centre
	OpSplit    byte = 0x11
	OpEject    byte = 0x15
	OpChat     byte = 0x20 // [str message]
	OpCommand  byte = 0x21 // [str cmd][u8 argc]{str arg}
)

// Server to client opcodes.
const (
	OpPong        byte = 0x03
	OpWorldFull   byte = 0x10
	OpWorldDelta  byte = 0x14
	OpLeaderboard byte = 0x31 // [u16 players][u8 n]{[u16 id][str name]}
	OpEvent       byte = 0x40 // msgpack Envelope
)

var (
	ErrShortFrame    = errors.New("protocol: short frame")
	ErrUnknownOpcode = errors.New("protocol: unknown opcode")
	ErrTrailingBytes = errors.New("protocol: trailing bytes")
	ErrTargetRange   = errors.New("protocol: target out of range")
)
