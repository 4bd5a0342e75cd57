package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Control event types carried in an Envelope.
const (
	EventWelcome          = "welcome"
	EventPlayerJoin       = "playerJoin"
	EventPlayerDisconnect = "playerDisconnect"
	EventPlayerDied       = "playerDied"
	EventRIP              = "RIP"
	EventKick             = "kick"
	EventServerMsg        = "serverMSG"
	EventChat             = "chat"
	EventAdminToken       = "adminToken"
)

// Envelope wraps a control event: T names it and D holds its msgpack payload.
type Envelope struct {
	T string             `msgpack:"t"`
	D msgpack.RawMessage `msgpack:"d"`
}

// Welcome is sent once a spawn or spectate request is accepted.
type Welcome struct {
	ID         uint16  `msgpack:"id"`
	Name       string  `msgpack:"name"`
	Spectator  bool    `msgpack:"spectator"`
	GameWidth  float64 `msgpack:"gameWidth"`
	GameHeight float64 `msgpack:"gameHeight"`
	Hue        int     `msgpack:"hue"`
}

// PlayerNotice announces a join, a disconnect or a death.
type PlayerNotice struct {
	ID      uint16 `msgpack:"id"`
	Name    string `msgpack:"name"`
	EatenBy string `msgpack:"eatenBy,omitempty"`
}

// Reason carries a free-form reason, for kicks and server messages.
type Reason struct {
	Message string `msgpack:"message"`
}

// Chat is one relayed chat line.
type Chat struct {
	Sender string `msgpack:"sender"`
	Text   string `msgpack:"text"`
	Admin  bool   `msgpack:"admin,omitempty"`
}

// AdminToken is returned after a successful admin login.
type AdminToken struct {
	Token string `msgpack:"token"`
}

// EncodeEvent returns [OpEvent][msgpack Envelope]. A nil payload encodes as
// msgpack nil.
func EncodeEvent(t string, payload any) ([]byte, error) {
	d, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	body, err := msgpack.Marshal(&Envelope{T: t, D: d})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", t, err)
	}
	return append([]byte{OpEvent}, body...), nil
}

// MustEvent is EncodeEvent for payloads that always encode.
func MustEvent(t string, payload any) []byte {
	b, err := EncodeEvent(t, payload)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeEvent parses a frame produced by EncodeEvent.
func DecodeEvent(b []byte) (*Envelope, error) {
	if len(b) == 0 {
		return nil, ErrShortFrame
	}
	if b[0] != OpEvent {
		return nil, ErrUnknownOpcode
	}
	var env Envelope
	if err := msgpack.Unmarshal(b[1:], &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// DecodePayload unmarshals an envelope's payload into T.
func DecodePayload[T any](env *Envelope) (T, error) {
	var v T
	if err := msgpack.Unmarshal(env.D, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", env.T, err)
	}
	return v, nil
}
