package gpio_test

import (
	"errors"
	"testing"
	"time"

	"litegpio/csr"
	"litegpio/gpio"
	"litegpio/irq"
	"litegpio/sim"
)

func TestSetTypeEncoding(t *testing.T) {
	testCases := []struct {
		sense gpio.Sense
		mode  uint32 // bit 3
		edge  uint32 // bit 3
	}{
		{gpio.RisingEdge, 0, 0},
		{gpio.FallingEdge, 0, 1 << 3},
		{gpio.SenseNone, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.sense.String(), func(t *testing.T) {
			ctrl, dev, _ := inputBank(t, 16)
			chip, err := ctrl.IRQ()
			if err != nil {
				t.Fatalf("IRQ(): %v", err)
			}
			if err := chip.SetType(3, tc.sense); err != nil {
				t.Fatalf("SetType: %v", err)
			}
			_, mode, edge, _, _ := dev.Registers()
			if mode != tc.mode || edge != tc.edge {
				t.Errorf("MODE/EDGE = %#x/%#x, want %#x/%#x", mode, edge, tc.mode, tc.edge)
			}
		})
	}
}

// Both-edge sensing sets the MODE bit and leaves the EDGE bit alone;
// the hardware ignores EDGE while MODE is set.
func TestSetTypeBothEdgesKeepsEdgeBit(t *testing.T) {
	ctrl, dev, _ := inputBank(t, 16)
	chip, err := ctrl.IRQ()
	if err != nil {
		t.Fatalf("IRQ(): %v", err)
	}

	if err := chip.SetType(3, gpio.FallingEdge); err != nil {
		t.Fatalf("SetType(falling): %v", err)
	}
	if err := chip.SetType(3, gpio.BothEdges); err != nil {
		t.Fatalf("SetType(both): %v", err)
	}

	_, mode, edge, _, _ := dev.Registers()
	if mode != 1<<3 {
		t.Errorf("MODE = %#x, want bit 3", mode)
	}
	if edge != 1<<3 {
		t.Errorf("EDGE = %#x, want bit 3 unchanged", edge)
	}
}

func TestSetTypeTouchesOnlyItsPin(t *testing.T) {
	ctrl, dev, _ := inputBank(t, 16)
	chip, _ := ctrl.IRQ()

	if err := chip.SetType(2, gpio.FallingEdge); err != nil {
		t.Fatalf("SetType(2): %v", err)
	}
	if err := chip.SetType(7, gpio.BothEdges); err != nil {
		t.Fatalf("SetType(7): %v", err)
	}

	_, mode, edge, _, _ := dev.Registers()
	if mode != 1<<7 {
		t.Errorf("MODE = %#x, want bit 7 only", mode)
	}
	if edge != 1<<2 {
		t.Errorf("EDGE = %#x, want bit 2 only", edge)
	}
}

func TestSetTypeInvalidLeavesRegisters(t *testing.T) {
	ctrl, dev, _ := inputBank(t, 16)
	chip, _ := ctrl.IRQ()

	if err := chip.SetType(4, gpio.FallingEdge); err != nil {
		t.Fatalf("SetType: %v", err)
	}
	_, modeBefore, edgeBefore, _, _ := dev.Registers()

	if err := chip.SetType(4, gpio.Sense(42)); !errors.Is(err, gpio.ErrInvalidArgument) {
		t.Fatalf("SetType(invalid): got %v, want ErrInvalidArgument", err)
	}

	_, modeAfter, edgeAfter, _, _ := dev.Registers()
	if modeAfter != modeBefore || edgeAfter != edgeBefore {
		t.Errorf("registers changed by failed SetType: MODE %#x->%#x EDGE %#x->%#x",
			modeBefore, modeAfter, edgeBefore, edgeAfter)
	}
}

func TestMaskClearsEnable(t *testing.T) {
	ctrl, dev, _ := inputBank(t, 8)
	chip, _ := ctrl.IRQ()

	if err := chip.Unmask(2); err != nil {
		t.Fatalf("Unmask: %v", err)
	}
	if err := chip.Unmask(5); err != nil {
		t.Fatalf("Unmask: %v", err)
	}
	if err := chip.Mask(2); err != nil {
		t.Fatalf("Mask: %v", err)
	}

	_, _, _, _, enable := dev.Registers()
	if enable != 1<<5 {
		t.Errorf("enable = %#x, want bit 5 only", enable)
	}
}

// An edge sensed while masked must never surface on unmask: the stale
// pending bit is discarded before the enable bit is set.
func TestUnmaskDiscardsStaleEdge(t *testing.T) {
	ctrl, dev, _ := inputBank(t, 16)
	chip, _ := ctrl.IRQ()

	// Sensed edge on pin 5 while masked
	dev.SetInput(5, true)
	_, _, _, pending, _ := dev.Registers()
	if pending&(1<<5) == 0 {
		t.Fatal("edge did not latch while masked")
	}

	if err := chip.Unmask(5); err != nil {
		t.Fatalf("Unmask: %v", err)
	}

	_, _, _, pending, enable := dev.Registers()
	if pending&(1<<5) != 0 {
		t.Error("pending bit survived unmask")
	}
	if enable&(1<<5) == 0 {
		t.Error("enable bit not set by unmask")
	}
}

// The pending clear must hit the hardware before the enable set does;
// the other order can deliver a spurious interrupt in the gap.
func TestUnmaskWriteOrdering(t *testing.T) {
	dev := sim.NewDevice(16)
	trace := &traceBus{Bus: dev}
	parent := sim.NewParent()
	ctrl, err := gpio.New(gpio.Config{
		Bus:        trace,
		Pins:       16,
		Direction:  gpio.Input,
		Parent:     parent,
		ParentLine: testLine,
	})
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}
	chip, _ := ctrl.IRQ()

	trace.mu.Lock()
	trace.writes = nil
	trace.mu.Unlock()

	if err := chip.Unmask(5); err != nil {
		t.Fatalf("Unmask: %v", err)
	}

	trace.mu.Lock()
	defer trace.mu.Unlock()
	pendingAt, enableAt := -1, -1
	for i, w := range trace.writes {
		switch w.addr {
		case gpio.RegPending:
			if pendingAt < 0 && w.value&(1<<5) != 0 {
				pendingAt = i
			}
		case gpio.RegEnable:
			if enableAt < 0 && w.value&(1<<5) != 0 {
				enableAt = i
			}
		}
	}
	if pendingAt < 0 || enableAt < 0 {
		t.Fatalf("unmask wrote pending at %d, enable at %d", pendingAt, enableAt)
	}
	if pendingAt > enableAt {
		t.Errorf("enable written before pending clear (pending at %d, enable at %d)", pendingAt, enableAt)
	}
}

// edgeRaceBus injects an input edge on pin 5 immediately before the
// first enable write that targets it, landing the edge in the window
// between Unmask's pending clear and its enable set.
type edgeRaceBus struct {
	csr.Bus
	dev  *sim.Device
	done bool
}

func (b *edgeRaceBus) Write32(addr uint32, value uint32) error {
	if !b.done && addr == gpio.RegEnable && value&(1<<5) != 0 {
		b.done = true
		b.dev.SetInput(5, true)
	}
	return b.Bus.Write32(addr, value)
}

// An edge latching between Unmask's pending clear and its enable write
// must not be delivered synchronously on the unmasking goroutine, which
// still holds the controller's lock; it stays latched for the next
// assertion of the shared line.
func TestUnmaskEdgeInRaceWindow(t *testing.T) {
	dev := sim.NewDevice(8)
	parent := sim.NewParent()
	sim.Chain(dev, parent, testLine)

	ctrl, err := gpio.New(gpio.Config{
		Bus:        &edgeRaceBus{Bus: dev, dev: dev},
		Pins:       8,
		Direction:  gpio.Input,
		Parent:     parent,
		ParentLine: testLine,
	})
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}

	delivered := make(chan struct{}, 1)
	requested := make(chan error, 1)
	go func() {
		_, err := ctrl.RequestIRQ(5, gpio.RisingEdge, func() {
			delivered <- struct{}{}
		})
		requested <- err
	}()

	select {
	case err := <-requested:
		if err != nil {
			t.Fatalf("RequestIRQ: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("unmask never returned with an edge in its enable window")
	}

	select {
	case <-delivered:
		t.Fatal("edge delivered on the unmasking goroutine")
	default:
	}

	_, _, _, pending, enable := dev.Registers()
	if pending&(1<<5) == 0 || enable&(1<<5) == 0 {
		t.Fatalf("raced edge not latched: pending=%#b enable=%#b", pending, enable)
	}

	parent.Assert(testLine)
	select {
	case <-delivered:
	default:
		t.Fatal("latched edge never serviced")
	}
}

func TestAckClearsPendingAndEOIsParent(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)
	chip, _ := ctrl.IRQ()

	dev.SetInput(3, true)
	_, _, _, pending, _ := dev.Registers()
	if pending&(1<<3) == 0 {
		t.Fatal("edge did not latch")
	}

	if err := chip.Ack(3); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	_, _, _, pending, _ = dev.Registers()
	if pending&(1<<3) != 0 {
		t.Error("pending bit survived ack")
	}
	if got := parent.EOICount(testLine); got != 1 {
		t.Errorf("parent EOIs = %d, want 1", got)
	}
}

func TestSetAffinity(t *testing.T) {
	ctrl, _, parent := inputBank(t, 8)
	chip, _ := ctrl.IRQ()

	if err := chip.SetAffinity(2, irq.Affinity(0b11)); err != nil {
		t.Fatalf("SetAffinity: %v", err)
	}
	aff, ok := parent.Affinity(testLine)
	if !ok || aff != 0b11 {
		t.Errorf("forwarded affinity = (%#x, %v), want (0x3, true)", uint64(aff), ok)
	}
}

func TestSetAffinityWithoutParent(t *testing.T) {
	dev := sim.NewDevice(8)
	ctrl, err := gpio.New(gpio.Config{Bus: dev, Pins: 8, Direction: gpio.Input})
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}

	if err := ctrl.SetAffinity(2, 1); !errors.Is(err, gpio.ErrUnsupported) {
		t.Errorf("SetAffinity without parent: got %v, want ErrUnsupported", err)
	}
}

func TestIRQChipRejectsOutOfRangePins(t *testing.T) {
	ctrl, _, _ := inputBank(t, 8)
	chip, _ := ctrl.IRQ()

	for name, op := range map[string]func() error{
		"Mask":        func() error { return chip.Mask(8) },
		"Unmask":      func() error { return chip.Unmask(8) },
		"SetType":     func() error { return chip.SetType(8, gpio.RisingEdge) },
		"Ack":         func() error { return chip.Ack(8) },
		"SetAffinity": func() error { return chip.SetAffinity(8, 1) },
	} {
		if err := op(); !errors.Is(err, gpio.ErrOutOfRange) {
			t.Errorf("%s(8): got %v, want ErrOutOfRange", name, err)
		}
	}
}
