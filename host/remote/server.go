package remote

import (
	"fmt"
	"io"
	"sync"

	"litegpio/csr"
	"litegpio/wire"
)

// Server is the target side of the bridge: it executes read and write
// requests against a local csr.Bus and can push interrupt-line events
// to the host at any time. The host tool's simulator mode and the
// loopback tests both run one of these.
type Server struct {
	rw  io.ReadWriter
	bus csr.Bus
	dec *wire.Decoder

	// wmu serializes frame writes; Event runs on a different
	// goroutine than Serve's replies
	wmu sync.Mutex
}

// NewServer creates a server executing requests against bus.
func NewServer(rw io.ReadWriter, bus csr.Bus) *Server {
	return &Server{rw: rw, bus: bus, dec: wire.NewDecoder()}
}

// Serve processes requests until the transport fails. Bus errors are
// reported to the peer as error frames, not treated as fatal.
func (s *Server) Serve() error {
	var buf [256]byte
	for {
		n, err := s.rw.Read(buf[:])
		if n > 0 {
			s.dec.Feed(buf[:n])
			for {
				seq, payload, ok := s.dec.Next()
				if !ok {
					break
				}
				m, err := wire.ParseMessage(payload)
				if err != nil {
					continue
				}
				if err := s.handle(seq, m); err != nil {
					return err
				}
			}
		}
		if err != nil {
			return fmt.Errorf("remote: server transport: %w", err)
		}
	}
}

// Event pushes an interrupt-line notification to the host.
func (s *Server) Event(line uint32) error {
	return s.send(0, wire.Message{Type: wire.MsgEvent, Addr: line})
}

func (s *Server) handle(seq uint8, m wire.Message) error {
	switch m.Type {
	case wire.MsgRead:
		v, err := s.bus.Read32(m.Addr)
		if err != nil {
			return s.send(seq, wire.Message{Type: wire.MsgError, Addr: m.Addr})
		}
		return s.send(seq, wire.Message{Type: wire.MsgReadReply, Addr: m.Addr, Value: v})

	case wire.MsgWrite:
		if err := s.bus.Write32(m.Addr, m.Value); err != nil {
			return s.send(seq, wire.Message{Type: wire.MsgError, Addr: m.Addr})
		}
		return s.send(seq, wire.Message{Type: wire.MsgWriteReply, Addr: m.Addr})

	default:
		// Replies and events have no business arriving here; drop them
		return nil
	}
}

func (s *Server) send(seq uint8, m wire.Message) error {
	frame, err := wire.AppendFrame(nil, seq, wire.AppendMessage(nil, m))
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.rw.Write(frame); err != nil {
		return fmt.Errorf("remote: sending reply: %w", err)
	}
	return nil
}
