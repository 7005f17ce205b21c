package gpio

import (
	"log/slog"

	"litegpio/irq"
)

// ServeIRQ handles one physical assertion of the bank's shared parent
// line. It implements irq.ChainedHandler; the parent delivery mechanism
// holds it as the opaque handle for this controller and guarantees it
// is not re-entered for the same line.
//
// Dispatch is a pure function of the pending and enable registers: the
// set bits of pending & enabled are delivered in ascending pin order,
// each resolved to its logical line through the bank's domain. There is
// no queueing; a pin whose handler does not ack keeps its pending bit
// and fires again on the next assertion.
func (c *Controller) ServeIRQ() {
	line := c.bridge.Line()
	c.parent.Enter(line)
	defer c.parent.Exit(line)

	c.mu.Lock()
	enabled, errEn := c.bank.ReadReg(RegEnable)
	pending, errPd := c.bank.ReadReg(RegPending)
	c.mu.Unlock()

	if errEn != nil || errPd != nil {
		slog.Warn("gpio: dispatch register read failed",
			"enable_err", errEn, "pending_err", errPd)
		return
	}

	toHandle := pending & enabled
	for pin := 0; pin < c.pins; pin++ {
		if toHandle&(1<<uint(pin)) == 0 {
			continue
		}

		line, ok := c.domain.Mapping(irq.Hwirq(pin))
		if !ok {
			// Never fatal: the remaining pins of this assertion
			// still need service
			slog.Warn("gpio: pending pin has no irq mapping",
				"domain", c.domain.Name(), "pin", pin)
			continue
		}
		if !c.domain.Dispatch(line) {
			slog.Warn("gpio: irq line has no handler",
				"domain", c.domain.Name(), "pin", pin, "line", line)
		}
	}
}
