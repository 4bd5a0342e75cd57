package protocol

// MaxTarget bounds each component of a pointer target.
const MaxTarget = 16384

func outOfRange(v int16) bool {
	return v > MaxTarget || v < -MaxTarget
}

// ClientMessage is one decoded client frame. Only the fields of its opcode
// are set.
type ClientMessage struct {
	Op      byte
	ScreenW uint16
	ScreenH uint16
	Name    string
	Token   string
	X, Y    int16
	Text    string
	Command string
	Args    []string
}

// DecodeClientMessage parses a client frame. Unknown opcodes and malformed bodies
// are errors; the caller counts them as violations.
func DecodeClientMessage(b []byte) (ClientMessage, error) {
	r := NewReader(b)
	m := ClientMessage{Op: r.U8()}
	if r.Err() != nil {
		return m, r.Err()
	}
	switch m.Op {
	case OpSpawn:
		m.ScreenW, m.ScreenH = r.U16(), r.U16()
		m.Name = r.Str()
		// The token is optional for older clients.
		if r.Remaining() > 0 {
			m.Token = r.Str()
		}
	case OpSpectate, OpResize:
		m.ScreenW, m.ScreenH = r.U16(), r.U16()
	case OpTarget:
		m.X, m.Y = r.I16(), r.I16()
		if r.Err() == nil && (outOfRange(m.X) || outOfRange(m.Y)) {
			return m, ErrTargetRange
		}
	case OpPing, OpSplit, OpEject:
	case OpChat:
		m.Text = r.Str()
	case OpCommand:
		m.Command = r.Str()
		n := int(r.U8())
		for i := 0; i < n && r.Err() == nil; i++ {
			m.Args = append(m.Args, r.Str())
		}
	default:
		return m, ErrUnknownOpcode
	}
	return m, r.Done()
}

// AppendSpawn encodes a spawn request.
func AppendSpawn(dst []byte, screenW, screenH uint16, name, token string) []byte {
	w := NewWriter(dst)
	w.U8(OpSpawn)
	w.U16(screenW)
	w.U16(screenH)
	w.Str(name)
	w.Str(token)
	return w.Bytes()
}

// AppendScreen encodes a spectate or resize request.
func AppendScreen(dst []byte, op byte, screenW, screenH uint16) []byte {
	w := NewWriter(dst)
	w.U8(op)
	w.U16(screenW)
	w.U16(screenH)
	return w.Bytes()
}

// AppendTarget encodes a pointer target relative to the player centre.
func AppendTarget(dst []byte, x, y int16) []byte {
	w := NewWriter(dst)
	w.U8(OpTarget)
	w.I16(x)
	w.I16(y)
	return w.Bytes()
}

// AppendChat encodes a chat line.
func AppendChat(dst []byte, text string) []byte {
	w := NewWriter(dst)
	w.U8(OpChat)
	w.Str(text)
	return w.Bytes()
}

// AppendCommand encodes a chat command such as "login" or "kick".
func AppendCommand(dst []byte, cmd string, args ...string) []byte {
	w := NewWriter(dst)
	w.U8(OpCommand)
	w.Str(cmd)
	if len(args) > MaxString {
		args = args[:MaxString]
	}
	w.U8(uint8(len(args)))
	for _, a := range args {
		w.Str(a)
	}
	return w.Bytes()
}

// AppendPong encodes the reply to a ping.
func AppendPong(dst []byte) []byte {
	return append(dst, OpPong)
}
