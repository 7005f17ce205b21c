package remote

import (
	"fmt"
	"net"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud matches the stock LiteX UART bridge configuration.
const DefaultBaud = 115200

// readTimeout bounds how long one read waits for target bytes before
// the round trip gives up with ErrNoResponse.
const readTimeout = 2 * time.Second

// OpenSerial opens the UART bridge on the given device and returns a
// Bus speaking the wire protocol over it.
func OpenSerial(device string, baud int) (*Bus, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: opening serial port %s: %w", device, err)
	}
	return NewBus(port), nil
}

// Dial connects to a TCP bridge (for targets reachable over Ethernet
// or an in-process server listening on localhost).
func Dial(addr string) (*Bus, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("remote: dialing %s: %w", addr, err)
	}
	return NewBus(&deadlineConn{Conn: conn, timeout: readTimeout}), nil
}

// deadlineConn applies a fresh read deadline to every read so a dead
// target surfaces as an error instead of a hung round trip. A deadline
// expiry is reported as a zero-byte read, matching the serial port's
// timeout behavior.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
	}
	return n, err
}
