package gpio

import (
	"fmt"

	"litegpio/irq"
)

// Sense selects which edges of a pin raise its pending bit. The
// hardware encodes it across two registers: the MODE bit selects
// both-edge sensing, and when MODE is clear the EDGE bit picks rising
// (0) or falling (1).
type Sense int

const (
	// SenseNone clears both encoding bits. The hardware has no true
	// "off" sense; a cleared encoding behaves like rising-edge, so
	// callers wanting a dead line must also mask it.
	SenseNone Sense = iota
	RisingEdge
	FallingEdge
	BothEdges
)

func (s Sense) String() string {
	switch s {
	case SenseNone:
		return "none"
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	case BothEdges:
		return "both"
	default:
		return fmt.Sprintf("sense(%d)", int(s))
	}
}

// checkPin validates a pin index for the interrupt chip, which unlike
// the value path never accepts out-of-range pins silently.
func (c *Controller) checkPin(pin int) error {
	if pin < 0 || pin >= c.pins {
		return fmt.Errorf("%w: pin %d of %d", ErrOutOfRange, pin, c.pins)
	}
	return nil
}

// Mask clears the pin's enable bit. No further delivery happens for the
// pin until it is unmasked, whatever its pending bit does meanwhile.
func (c *Controller) Mask(pin int) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	bit := uint64(1) << uint(pin)

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.bank.UpdateReg(RegEnable, bit, 0)
}

// Unmask enables delivery for the pin. Any pending bit left over from
// an edge sensed while masked is cleared first; enabling before
// clearing would deliver that stale edge as a spurious interrupt.
func (c *Controller) Unmask(pin int) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	bit := uint64(1) << uint(pin)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Pending is write-1-to-clear
	if err := c.bank.WriteReg(RegPending, bit); err != nil {
		return err
	}
	return c.bank.UpdateReg(RegEnable, bit, bit)
}

// SetType programs the pin's edge sensing. Unrecognized senses fail
// with ErrInvalidArgument before anything is written, leaving MODE and
// EDGE untouched.
func (c *Controller) SetType(pin int, sense Sense) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	bit := uint64(1) << uint(pin)

	c.mu.Lock()
	defer c.mu.Unlock()

	mode, err := c.bank.ReadReg(RegMode)
	if err != nil {
		return err
	}
	edge, err := c.bank.ReadReg(RegEdge)
	if err != nil {
		return err
	}

	switch sense {
	case SenseNone, RisingEdge:
		mode &^= bit
		edge &^= bit
	case FallingEdge:
		mode &^= bit
		edge |= bit
	case BothEdges:
		mode |= bit
		// EDGE is ignored by the hardware while MODE is set
	default:
		return fmt.Errorf("%w: sense %d", ErrInvalidArgument, int(sense))
	}

	if err := c.bank.WriteReg(RegMode, mode); err != nil {
		return err
	}
	return c.bank.WriteReg(RegEdge, edge)
}

// Ack clears the pin's pending bit at end-of-interrupt, then signals
// EOI for the shared line upward through the bridge. A handler that
// never acks leaves its pending bit set, and the pin fires again on the
// next assertion of the parent line.
func (c *Controller) Ack(pin int) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	bit := uint64(1) << uint(pin)

	c.mu.Lock()
	err := c.bank.WriteReg(RegPending, bit)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if c.bridge != nil {
		c.bridge.EOIParent(pin)
	}
	return nil
}

// SetAffinity forwards an affinity request for the pin's interrupt to
// the parent domain. Without a parent linkage there is nowhere to
// forward it and the request is unsupported.
func (c *Controller) SetAffinity(pin int, aff irq.Affinity) error {
	if err := c.checkPin(pin); err != nil {
		return err
	}
	return c.bridge.ForwardAffinity(pin, aff)
}
