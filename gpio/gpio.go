// Package gpio drives the LiteX GPIO peripheral: a bank of up to 32
// pins with one fixed direction, five span-wide CSRs and, for input
// banks, an interrupt chip chained off a single shared parent line.
package gpio

import (
	"fmt"
	"sync"

	"litegpio/csr"
	"litegpio/irq"
)

// MaxPins is the widest bank the hardware supports.
const MaxPins = 32

// Register byte offsets from the controller base. Each register is one
// logical value of the bank's subregister span.
const (
	RegValue   = 0x00
	RegMode    = 0x04
	RegEdge    = 0x08
	RegPending = 0x10
	RegEnable  = 0x14
)

// Direction is the fixed direction of a whole bank. The hardware is
// wired strictly input-only or strictly output-only; there is no
// per-pin direction.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Chip is the capability set a controller exposes to the host GPIO
// layer.
type Chip interface {
	Value(pin int) (bool, error)
	Multiple(mask uint32) (uint32, error)
	SetValue(pin int, on bool) error
	SetMultiple(mask, bits uint32) error
	Direction() Direction
	DirectionInput(pin int) error
	DirectionOutput(pin int, on bool) error
}

// IRQChip is the interrupt capability set, present only on input banks
// with a parent interrupt domain.
type IRQChip interface {
	Mask(pin int) error
	Unmask(pin int) error
	SetType(pin int, sense Sense) error
	Ack(pin int) error
	SetAffinity(pin int, aff irq.Affinity) error
}

// Config carries everything a controller needs at attach time. There is
// no global registration; the caller resolves the base address, pin
// count and parent linkage and hands them in here.
type Config struct {
	// Bus is the register transport the controller runs on
	Bus csr.Bus

	// Base is the bus address of the VALUE register
	Base uint32

	// Pins is the bank width, 1..MaxPins
	Pins int

	// Direction is the bank's fixed direction
	Direction Direction

	// Parent is the parent interrupt domain, nil when the bank has no
	// interrupt wiring
	Parent irq.Parent

	// ParentLine is the single parent line the whole bank shares. A
	// nonzero line with a nil Parent is an attach error: the line
	// exists but no domain can resolve it.
	ParentLine irq.Line
}

// Controller owns one GPIO bank. It implements Chip always and IRQChip
// when the bank is an input bank with a parent domain.
type Controller struct {
	bank *csr.Bank
	pins int
	dir  Direction

	// mu serializes read-modify-write sequences on the mode, edge,
	// pending and enable registers, and the register phase of
	// dispatch. Plain value-register accesses stay outside it,
	// matching the original driver; see DESIGN.md.
	mu sync.Mutex

	domain *irq.Domain
	bridge *DomainBridge
	parent irq.Parent
}

var _ Chip = (*Controller)(nil)
var _ irq.ChainedHandler = (*Controller)(nil)

// New attaches a controller to its register region. For input banks
// with a parent domain it clears the enable register before binding the
// dispatcher, so no pin can fire until a consumer unmasks it.
func New(cfg Config) (*Controller, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("%w: nil register bus", ErrDeviceAttach)
	}
	if cfg.Pins < 1 || cfg.Pins > MaxPins {
		return nil, fmt.Errorf("%w: %d pins (want 1..%d)", ErrDeviceAttach, cfg.Pins, MaxPins)
	}
	if cfg.Direction != Input && cfg.Direction != Output {
		return nil, fmt.Errorf("%w: bad direction %d", ErrDeviceAttach, int(cfg.Direction))
	}

	bank, err := csr.NewBank(cfg.Bus, cfg.Base, cfg.Pins)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceAttach, err)
	}

	c := &Controller{
		bank: bank,
		pins: cfg.Pins,
		dir:  cfg.Direction,
	}

	if cfg.Parent == nil {
		if cfg.ParentLine != 0 {
			return nil, fmt.Errorf("%w: parent line %d has no domain", ErrNoParentDomain, cfg.ParentLine)
		}
		return c, nil
	}

	if cfg.Direction == Input {
		if err := c.initIRQ(cfg.Parent, cfg.ParentLine); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// initIRQ wires the interrupt side: disable all pin interrupts, build
// the per-bank domain and bridge, and bind the dispatcher to the shared
// parent line.
func (c *Controller) initIRQ(parent irq.Parent, line irq.Line) error {
	if err := c.bank.WriteReg(RegEnable, 0); err != nil {
		return fmt.Errorf("%w: clearing enable register: %v", ErrDeviceAttach, err)
	}
	c.parent = parent
	c.domain = irq.NewDomain("litex-gpio")
	c.bridge = NewDomainBridge(parent, line)
	if err := parent.BindChained(line, c); err != nil {
		return fmt.Errorf("%w: binding parent line %d: %v", ErrNoParentDomain, line, err)
	}
	return nil
}

// Pins returns the bank width.
func (c *Controller) Pins() int {
	return c.pins
}

// IRQ returns the controller's interrupt capability set. It fails with
// ErrNoParentDomain on output banks and on banks attached without a
// parent domain.
func (c *Controller) IRQ() (IRQChip, error) {
	if c.domain == nil {
		return nil, fmt.Errorf("%w: bank has no interrupt wiring", ErrNoParentDomain)
	}
	return c, nil
}

// Value returns the current level of pin.
func (c *Controller) Value(pin int) (bool, error) {
	if pin < 0 || pin >= c.pins {
		return false, fmt.Errorf("%w: pin %d of %d", ErrOutOfRange, pin, c.pins)
	}
	regv, err := c.bank.ReadReg(RegValue)
	if err != nil {
		return false, err
	}
	return regv&(1<<uint(pin)) != 0, nil
}

// Multiple returns the levels of all pins selected by mask.
func (c *Controller) Multiple(mask uint32) (uint32, error) {
	if uint64(mask) >= 1<<uint(c.pins) {
		return 0, fmt.Errorf("%w: mask 0x%x addresses pins beyond %d", ErrOutOfRange, mask, c.pins)
	}
	regv, err := c.bank.ReadReg(RegValue)
	if err != nil {
		return 0, err
	}
	return uint32(regv) & mask, nil
}

// SetValue drives pin to the given level. Out-of-range pins are
// silently ignored, mirroring the permissive hardware semantics;
// callers must not rely on that.
func (c *Controller) SetValue(pin int, on bool) error {
	if pin < 0 || pin >= c.pins {
		return nil
	}
	var bits uint64
	if on {
		bits = 1 << uint(pin)
	}
	return c.bank.UpdateReg(RegValue, 1<<uint(pin), bits)
}

// SetMultiple drives every pin selected by mask to its bit in bits.
// Masks addressing pins beyond the bank are silently ignored, like
// SetValue.
func (c *Controller) SetMultiple(mask, bits uint32) error {
	if uint64(mask) >= 1<<uint(c.pins) {
		return nil
	}
	return c.bank.UpdateReg(RegValue, uint64(mask), uint64(bits))
}

// Direction returns the bank's fixed direction.
func (c *Controller) Direction() Direction {
	return c.dir
}

// DirectionInput accepts the request only on input banks; the hardware
// cannot turn a pin around.
func (c *Controller) DirectionInput(pin int) error {
	if c.dir != Input {
		return fmt.Errorf("%w: bank is wired %s", ErrUnsupported, c.dir)
	}
	return nil
}

// DirectionOutput accepts the request only on output banks. The level
// argument is part of the host GPIO contract; the host sets the value
// separately, so no register is written here.
func (c *Controller) DirectionOutput(pin int, on bool) error {
	if c.dir != Output {
		return fmt.Errorf("%w: bank is wired %s", ErrUnsupported, c.dir)
	}
	return nil
}
