package wire

import "fmt"

// MsgType identifies a bridge message. Requests flow host to target,
// replies mirror the request type with the reply bit set, and events
// flow target to host on their own.
type MsgType byte

const (
	MsgRead  MsgType = 0x01 // read a 32-bit register: addr
	MsgWrite MsgType = 0x02 // write a 32-bit register: addr, value

	// replyBit marks a response to the request of the same low bits
	replyBit = 0x80

	MsgReadReply  = MsgRead | replyBit  // addr, value
	MsgWriteReply = MsgWrite | replyBit // addr

	// MsgEvent is an unsolicited interrupt-line notification: line
	MsgEvent MsgType = 0x10

	// MsgError reports a failed request: addr of the request
	MsgError MsgType = 0x7F
)

// Message is one decoded bridge message. Addr carries the register
// address for reads and writes and the line number for events; Value is
// meaningful for writes and read replies only.
type Message struct {
	Type  MsgType
	Addr  uint32
	Value uint32
}

// hasValue reports whether a message type carries the Value field.
func (t MsgType) hasValue() bool {
	return t == MsgWrite || t == MsgReadReply
}

// AppendMessage appends the encoded message payload to dst. The result
// goes through AppendFrame before hitting the transport.
func AppendMessage(dst []byte, m Message) []byte {
	dst = append(dst, byte(m.Type))
	dst = AppendUint(dst, m.Addr)
	if m.Type.hasValue() {
		dst = AppendUint(dst, m.Value)
	}
	return dst
}

// ParseMessage decodes one message from a frame payload.
func ParseMessage(p []byte) (Message, error) {
	if len(p) == 0 {
		return Message{}, fmt.Errorf("wire: empty message payload")
	}
	m := Message{Type: MsgType(p[0])}
	p = p[1:]

	switch m.Type {
	case MsgRead, MsgWrite, MsgReadReply, MsgWriteReply, MsgEvent, MsgError:
	default:
		return Message{}, fmt.Errorf("wire: unknown message type 0x%02x", byte(m.Type))
	}

	addr, err := DecodeUint(&p)
	if err != nil {
		return Message{}, fmt.Errorf("wire: decoding addr: %w", err)
	}
	m.Addr = addr

	if m.Type.hasValue() {
		v, err := DecodeUint(&p)
		if err != nil {
			return Message{}, fmt.Errorf("wire: decoding value: %w", err)
		}
		m.Value = v
	}
	return m, nil
}
