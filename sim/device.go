// Package sim provides a behavioral model of the LiteX GPIO peripheral
// and a synchronous parent interrupt domain. Tests and the host tool
// run the real controller code against it without hardware attached.
package sim

import (
	"fmt"
	"sync"

	"litegpio/gpio"
)

// Device models one GPIO bank: pin levels, edge sensing per the
// MODE/EDGE encoding, a write-1-to-clear pending register and an enable
// register gating the shared interrupt line. It implements csr.Bus with
// its registers at the standard offsets from base 0.
type Device struct {
	mu   sync.Mutex
	pins int

	value   uint32
	mode    uint32
	edge    uint32
	pending uint32
	enable  uint32

	// line receives the level of the shared interrupt output (high
	// whenever pending & enable != 0) on transitions caused by input
	// edges. Register writes move the level silently, so delivery
	// always originates from external stimulus and a register sequence
	// made under a caller's lock can never assert back into it. Called
	// without the device lock held so the receiver may access
	// registers.
	line      func(level bool)
	lineLevel bool
}

// NewDevice creates a bank of the given width with all registers zero.
func NewDevice(pins int) *Device {
	if pins < 1 || pins > gpio.MaxPins {
		panic(fmt.Sprintf("sim: bad pin count %d", pins))
	}
	return &Device{pins: pins}
}

// SetLineFunc installs the receiver of the shared interrupt line level.
func (d *Device) SetLineFunc(fn func(level bool)) {
	d.mu.Lock()
	d.line = fn
	d.mu.Unlock()
}

func (d *Device) pinMask() uint32 {
	if d.pins == 32 {
		return ^uint32(0)
	}
	return (1 << uint(d.pins)) - 1
}

// Read32 implements csr.Bus.
func (d *Device) Read32(addr uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch addr {
	case gpio.RegValue:
		return d.value, nil
	case gpio.RegMode:
		return d.mode, nil
	case gpio.RegEdge:
		return d.edge, nil
	case gpio.RegPending:
		return d.pending, nil
	case gpio.RegEnable:
		return d.enable, nil
	default:
		return 0, fmt.Errorf("sim: read of unmapped register 0x%02x", addr)
	}
}

// Write32 implements csr.Bus. Pending is write-1-to-clear. Writing the
// enable or pending register re-evaluates the shared line level but
// never raises the line callback; see the line field.
func (d *Device) Write32(addr uint32, value uint32) error {
	d.mu.Lock()

	switch addr {
	case gpio.RegValue:
		d.value = value & d.pinMask()
	case gpio.RegMode:
		d.mode = value & d.pinMask()
	case gpio.RegEdge:
		d.edge = value & d.pinMask()
	case gpio.RegPending:
		// W1C: set bits clear, clear bits leave alone
		d.pending &^= value
	case gpio.RegEnable:
		d.enable = value & d.pinMask()
	default:
		d.mu.Unlock()
		return fmt.Errorf("sim: write of unmapped register 0x%02x", addr)
	}

	d.evalLineLocked()
	d.mu.Unlock()
	return nil
}

// SetInput drives the external level of one input pin. A transition
// that matches the pin's programmed sensing latches its pending bit:
// MODE set senses both edges, otherwise EDGE picks falling (1) or
// rising (0).
func (d *Device) SetInput(pin int, level bool) {
	if pin < 0 || pin >= d.pins {
		panic(fmt.Sprintf("sim: input pin %d of %d", pin, d.pins))
	}
	bit := uint32(1) << uint(pin)

	d.mu.Lock()

	old := d.value&bit != 0
	if level {
		d.value |= bit
	} else {
		d.value &^= bit
	}

	rising := !old && level
	falling := old && !level
	if rising || falling {
		sensed := false
		switch {
		case d.mode&bit != 0:
			sensed = true
		case d.edge&bit != 0:
			sensed = falling
		default:
			sensed = rising
		}
		if sensed {
			d.pending |= bit
		}
	}

	notify, lvl := d.evalLineLocked()
	d.mu.Unlock()

	if notify != nil {
		notify(lvl)
	}
}

// evalLineLocked recomputes the shared line level. It returns the
// callback to invoke after the lock is dropped, or nil when the level
// did not change; Write32 discards the callback, SetInput invokes it.
func (d *Device) evalLineLocked() (func(bool), bool) {
	level := d.pending&d.enable != 0
	if level == d.lineLevel {
		return nil, false
	}
	d.lineLevel = level
	return d.line, level
}

// LineLevel returns the current level of the shared interrupt output.
func (d *Device) LineLevel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lineLevel
}

// Registers returns a snapshot of all five registers, for tests that
// compare hardware state before and after an operation.
func (d *Device) Registers() (value, mode, edge, pending, enable uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.mode, d.edge, d.pending, d.enable
}
