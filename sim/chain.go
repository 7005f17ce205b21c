package sim

import "litegpio/irq"

// Chain wires a device's shared interrupt output to a parent line:
// every rising transition of the line level becomes one physical
// assertion, delivered synchronously on the goroutine that caused the
// transition. Falling transitions are level bookkeeping only.
//
// The device raises its line callback only for input-driven
// transitions; register writes move the level silently. Assertions
// therefore always originate from input-edge injection, never from a
// register sequence made while a caller's own lock is held, so
// synchronous delivery cannot deadlock against it. An edge that raises
// the level mid-sequence stays latched in the pending register and is
// serviced on the next assertion.
func Chain(d *Device, p *Parent, line irq.Line) {
	d.SetLineFunc(func(level bool) {
		if level {
			p.Assert(line)
		}
	})
}
