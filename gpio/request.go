package gpio

import (
	"fmt"

	"litegpio/irq"
)

// RequestIRQ claims the pin's interrupt for a consumer: it maps the pin
// to a fresh logical line, programs the sense and unmasks the pin. The
// handler runs during dispatch of a parent-line assertion and is
// responsible for calling Ack(pin) when it has serviced the edge; a
// handler that does not ack sees the same pin again on the next
// assertion.
func (c *Controller) RequestIRQ(pin int, sense Sense, h irq.Handler) (irq.Line, error) {
	if c.domain == nil {
		return 0, fmt.Errorf("%w: bank has no interrupt wiring", ErrNoParentDomain)
	}
	if err := c.checkPin(pin); err != nil {
		return 0, err
	}
	if h == nil {
		return 0, fmt.Errorf("%w: nil handler", ErrInvalidArgument)
	}

	line, err := c.domain.Map(irq.Hwirq(pin), h)
	if err != nil {
		return 0, err
	}
	if err := c.SetType(pin, sense); err != nil {
		c.domain.Unmap(irq.Hwirq(pin))
		return 0, err
	}
	if err := c.Unmask(pin); err != nil {
		c.domain.Unmap(irq.Hwirq(pin))
		return 0, err
	}
	return line, nil
}

// Mapping resolves a pin to the logical line RequestIRQ gave it. The
// second return is false for unclaimed pins and for controllers
// without interrupt wiring.
func (c *Controller) Mapping(pin int) (irq.Line, bool) {
	if c.domain == nil {
		return 0, false
	}
	return c.domain.Mapping(irq.Hwirq(pin))
}

// FreeIRQ releases a pin claimed with RequestIRQ: the pin is masked
// first, then its mapping and handler are removed.
func (c *Controller) FreeIRQ(pin int) error {
	if c.domain == nil {
		return fmt.Errorf("%w: bank has no interrupt wiring", ErrNoParentDomain)
	}
	if err := c.Mask(pin); err != nil {
		return err
	}
	c.domain.Unmap(irq.Hwirq(pin))
	return nil
}
