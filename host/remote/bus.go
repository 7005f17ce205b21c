// Package remote carries register accesses to a bridge target over any
// byte transport: a serial port, a TCP connection, or an in-process
// pipe. The client side is a csr.Bus; the server side executes requests
// against a local bus and pushes interrupt-line events back.
package remote

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"litegpio/wire"
)

// ErrNoResponse reports a request the target never answered within the
// transport's read timeout.
var ErrNoResponse = errors.New("remote: no response from target")

// Bus is the client side of the bridge. It implements csr.Bus; every
// register access is one framed request/reply round trip. Unsolicited
// event frames are queued as they arrive and handed to the event
// callback from Poll, never from inside a round trip: a handler
// dispatched from one event can issue register accesses without a
// second event re-entering it.
//
// A Bus serializes its round trips internally; it is safe for
// concurrent use.
type Bus struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	dec     *wire.Decoder
	seq     uint8
	scratch []byte
	queued  []uint32

	evmu    sync.Mutex
	onEvent func(line uint32)
}

// NewBus wraps a transport. The transport's Read must eventually return
// when no data arrives (a serial read timeout or connection deadline),
// otherwise a lost target blocks the caller forever.
func NewBus(rw io.ReadWriter) *Bus {
	return &Bus{rw: rw, dec: wire.NewDecoder()}
}

// OnEvent installs the receiver for interrupt-line events pushed by the
// target. The callback runs from Poll, without Bus locks held, and may
// issue register accesses itself.
func (b *Bus) OnEvent(fn func(line uint32)) {
	b.evmu.Lock()
	b.onEvent = fn
	b.evmu.Unlock()
}

// Close closes the transport when it supports closing.
func (b *Bus) Close() error {
	if c, ok := b.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Read32 implements csr.Bus.
func (b *Bus) Read32(addr uint32) (uint32, error) {
	reply, err := b.roundTrip(wire.Message{Type: wire.MsgRead, Addr: addr}, wire.MsgReadReply)
	if err != nil {
		return 0, err
	}
	return reply.Value, nil
}

// Write32 implements csr.Bus.
func (b *Bus) Write32(addr uint32, value uint32) error {
	_, err := b.roundTrip(wire.Message{Type: wire.MsgWrite, Addr: addr, Value: value}, wire.MsgWriteReply)
	return err
}

// Poll delivers queued interrupt events and, when none are queued,
// makes one read pass over the transport to pick up new ones. Events
// arriving during register accesses made by a running handler queue up
// for the next Poll instead of re-entering the dispatch in flight.
func (b *Bus) Poll() error {
	b.mu.Lock()
	events := b.queued
	b.queued = nil
	var err error
	if len(events) == 0 {
		events, err = b.pump()
	}
	b.mu.Unlock()

	b.deliver(events)
	return err
}

// roundTrip sends one request and waits for its reply. Events decoded
// while waiting are queued for the next Poll.
func (b *Bus) roundTrip(req wire.Message, want wire.MsgType) (wire.Message, error) {
	b.mu.Lock()
	reply, events, err := b.exchange(req, want)
	b.queued = append(b.queued, events...)
	b.mu.Unlock()

	return reply, err
}

func (b *Bus) exchange(req wire.Message, want wire.MsgType) (wire.Message, []uint32, error) {
	b.seq = (b.seq + 1) & wire.SeqMask
	frame, err := wire.AppendFrame(b.scratch[:0], b.seq, wire.AppendMessage(nil, req))
	if err != nil {
		return wire.Message{}, nil, err
	}
	b.scratch = frame[:0]
	if _, err := b.rw.Write(frame); err != nil {
		return wire.Message{}, nil, fmt.Errorf("remote: sending request: %w", err)
	}

	var events []uint32
	var buf [256]byte
	for {
		for {
			seq, payload, ok := b.dec.Next()
			if !ok {
				break
			}
			m, err := wire.ParseMessage(payload)
			if err != nil {
				// Malformed payload inside a valid frame; drop it
				continue
			}
			switch {
			case m.Type == wire.MsgEvent:
				events = append(events, m.Addr)
			case seq != b.seq:
				// Stale reply from an abandoned round trip
			case m.Type == wire.MsgError:
				return wire.Message{}, events, fmt.Errorf("remote: target failed request at 0x%08x", m.Addr)
			case m.Type == want:
				return m, events, nil
			}
		}

		n, err := b.rw.Read(buf[:])
		if n > 0 {
			b.dec.Feed(buf[:n])
			continue
		}
		if err != nil {
			return wire.Message{}, events, fmt.Errorf("remote: reading reply: %w", err)
		}
		// A zero-byte read with no error is the transport's timeout
		return wire.Message{}, events, ErrNoResponse
	}
}

// pump makes one read pass over the transport and decodes any events
// that were sitting in it. A zero-byte read ends the pass silently.
func (b *Bus) pump() ([]uint32, error) {
	var events []uint32
	var buf [256]byte

	n, err := b.rw.Read(buf[:])
	if n > 0 {
		b.dec.Feed(buf[:n])
	} else if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("remote: polling: %w", err)
	}

	for {
		_, payload, ok := b.dec.Next()
		if !ok {
			return events, nil
		}
		m, err := wire.ParseMessage(payload)
		if err != nil {
			continue
		}
		if m.Type == wire.MsgEvent {
			events = append(events, m.Addr)
		}
	}
}

func (b *Bus) deliver(events []uint32) {
	if len(events) == 0 {
		return
	}
	b.evmu.Lock()
	fn := b.onEvent
	b.evmu.Unlock()
	if fn == nil {
		return
	}
	for _, line := range events {
		fn(line)
	}
}
