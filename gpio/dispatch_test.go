package gpio_test

import (
	"errors"
	"testing"

	"litegpio/gpio"
	"litegpio/irq"
	"litegpio/sim"
)

// Dispatch must be a pure function of pending & enabled: pins outside
// the enable mask are never delivered, however pending they are.
func TestDispatchDeliversPendingAndEnabledOnly(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)

	var delivered []int
	handler := func(pin int) irq.Handler {
		return func() { delivered = append(delivered, pin) }
	}

	// Pin 1 claimed and unmasked, pin 2 claimed but masked again
	if _, err := ctrl.RequestIRQ(1, gpio.RisingEdge, handler(1)); err != nil {
		t.Fatalf("RequestIRQ(1): %v", err)
	}
	if _, err := ctrl.RequestIRQ(2, gpio.RisingEdge, handler(2)); err != nil {
		t.Fatalf("RequestIRQ(2): %v", err)
	}
	chip, _ := ctrl.IRQ()
	if err := chip.Mask(2); err != nil {
		t.Fatalf("Mask(2): %v", err)
	}

	// pending = 0b0110, enabled = 0b0010
	dev.SetInput(1, true)
	dev.SetInput(2, true)
	_, _, _, pending, enable := dev.Registers()
	if pending != 0b0110 || enable != 0b0010 {
		t.Fatalf("precondition: pending=%#b enable=%#b", pending, enable)
	}

	parent.Assert(testLine)

	if len(delivered) != 1 || delivered[0] != 1 {
		t.Errorf("delivered = %v, want [1]", delivered)
	}
}

// The walkthrough from the hardware manual: 16-pin input bank,
// pending=0b0000_0000_0010_0010, enabled=0b0000_0000_0010_0000 must
// deliver pin 5 and nothing else.
func TestDispatchSixteenPinScenario(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 16)

	var delivered []int
	if _, err := ctrl.RequestIRQ(5, gpio.RisingEdge, func() {
		delivered = append(delivered, 5)
	}); err != nil {
		t.Fatalf("RequestIRQ(5): %v", err)
	}

	dev.SetInput(1, true) // pending but never enabled
	dev.SetInput(5, true)
	_, _, _, pending, enable := dev.Registers()
	if pending != 0b0010_0010 || enable != 0b0010_0000 {
		t.Fatalf("precondition: pending=%#b enable=%#b", pending, enable)
	}

	parent.Assert(testLine)

	if len(delivered) != 1 || delivered[0] != 5 {
		t.Errorf("delivered = %v, want [5]", delivered)
	}
}

func TestDispatchAscendingPinOrder(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)

	var order []int
	for _, pin := range []int{6, 0, 3} {
		pin := pin
		if _, err := ctrl.RequestIRQ(pin, gpio.RisingEdge, func() {
			order = append(order, pin)
		}); err != nil {
			t.Fatalf("RequestIRQ(%d): %v", pin, err)
		}
	}

	dev.SetInput(6, true)
	dev.SetInput(0, true)
	dev.SetInput(3, true)

	parent.Assert(testLine)

	want := []int{0, 3, 6}
	if len(order) != len(want) {
		t.Fatalf("delivered %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivered %v, want %v", order, want)
		}
	}
}

// A pending, enabled pin without a domain mapping is skipped with a
// diagnostic; the rest of the assertion is still serviced.
func TestDispatchSkipsUnmappedPins(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)
	chip, _ := ctrl.IRQ()

	var delivered []int
	if _, err := ctrl.RequestIRQ(4, gpio.RisingEdge, func() {
		delivered = append(delivered, 4)
	}); err != nil {
		t.Fatalf("RequestIRQ(4): %v", err)
	}

	// Pin 2 enabled by hand, no mapping behind it
	if err := chip.Unmask(2); err != nil {
		t.Fatalf("Unmask(2): %v", err)
	}

	dev.SetInput(2, true)
	dev.SetInput(4, true)

	parent.Assert(testLine)

	if len(delivered) != 1 || delivered[0] != 4 {
		t.Errorf("delivered = %v, want [4]", delivered)
	}
}

// No queueing: a handler that does not ack sees its pin again on the
// next physical assertion, and stops seeing it once acked.
func TestDispatchReassertsUnackedPin(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)
	chip, _ := ctrl.IRQ()

	deliveries := 0
	if _, err := ctrl.RequestIRQ(3, gpio.RisingEdge, func() {
		deliveries++
	}); err != nil {
		t.Fatalf("RequestIRQ(3): %v", err)
	}

	dev.SetInput(3, true)

	parent.Assert(testLine)
	parent.Assert(testLine)
	if deliveries != 2 {
		t.Fatalf("unacked pin delivered %d times over 2 assertions, want 2", deliveries)
	}

	if err := chip.Ack(3); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	parent.Assert(testLine)
	if deliveries != 2 {
		t.Errorf("acked pin delivered again: %d deliveries", deliveries)
	}
}

// Full path: device edge -> shared line -> chained dispatch -> handler
// -> ack -> line drops.
func TestDispatchEndToEnd(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)
	sim.Chain(dev, parent, testLine)
	chip, _ := ctrl.IRQ()

	deliveries := 0
	if _, err := ctrl.RequestIRQ(6, gpio.BothEdges, func() {
		deliveries++
		if err := chip.Ack(6); err != nil {
			t.Errorf("Ack inside handler: %v", err)
		}
	}); err != nil {
		t.Fatalf("RequestIRQ(6): %v", err)
	}

	dev.SetInput(6, true)
	if deliveries != 1 {
		t.Fatalf("rising edge: %d deliveries, want 1", deliveries)
	}

	dev.SetInput(6, false)
	if deliveries != 2 {
		t.Fatalf("falling edge: %d deliveries, want 2", deliveries)
	}

	_, _, _, pending, _ := dev.Registers()
	if pending != 0 {
		t.Errorf("pending = %#b after acked handlers, want 0", pending)
	}
	if got := parent.EOICount(testLine); got != 2 {
		t.Errorf("parent EOIs = %d, want 2", got)
	}
}

func TestRequestIRQErrors(t *testing.T) {
	ctrl, _, _ := inputBank(t, 8)

	if _, err := ctrl.RequestIRQ(8, gpio.RisingEdge, func() {}); !errors.Is(err, gpio.ErrOutOfRange) {
		t.Errorf("out-of-range pin: got %v, want ErrOutOfRange", err)
	}
	if _, err := ctrl.RequestIRQ(1, gpio.RisingEdge, nil); !errors.Is(err, gpio.ErrInvalidArgument) {
		t.Errorf("nil handler: got %v, want ErrInvalidArgument", err)
	}

	if _, err := ctrl.RequestIRQ(1, gpio.RisingEdge, func() {}); err != nil {
		t.Fatalf("RequestIRQ: %v", err)
	}
	if _, err := ctrl.RequestIRQ(1, gpio.RisingEdge, func() {}); !errors.Is(err, irq.ErrMapped) {
		t.Errorf("double request: got %v, want irq.ErrMapped", err)
	}

	// A failed request must not leave the sense programmed
	dev := sim.NewDevice(8)
	parent := sim.NewParent()
	ctrl2, err := gpio.New(gpio.Config{
		Bus: dev, Pins: 8, Direction: gpio.Input,
		Parent: parent, ParentLine: testLine,
	})
	if err != nil {
		t.Fatalf("attaching: %v", err)
	}
	if _, err := ctrl2.RequestIRQ(2, gpio.Sense(99), func() {}); !errors.Is(err, gpio.ErrInvalidArgument) {
		t.Fatalf("invalid sense: got %v, want ErrInvalidArgument", err)
	}
	if _, ok := ctrl2.Mapping(2); ok {
		t.Error("failed request left a mapping behind")
	}

	out, _ := outputBank(t, 8)
	if _, err := out.RequestIRQ(1, gpio.RisingEdge, func() {}); !errors.Is(err, gpio.ErrNoParentDomain) {
		t.Errorf("request on output bank: got %v, want ErrNoParentDomain", err)
	}
}

func TestFreeIRQ(t *testing.T) {
	ctrl, dev, parent := inputBank(t, 8)

	deliveries := 0
	if _, err := ctrl.RequestIRQ(2, gpio.RisingEdge, func() { deliveries++ }); err != nil {
		t.Fatalf("RequestIRQ: %v", err)
	}
	if err := ctrl.FreeIRQ(2); err != nil {
		t.Fatalf("FreeIRQ: %v", err)
	}

	_, _, _, _, enable := dev.Registers()
	if enable&(1<<2) != 0 {
		t.Error("enable bit survived FreeIRQ")
	}

	dev.SetInput(2, true)
	parent.Assert(testLine)
	if deliveries != 0 {
		t.Errorf("freed pin delivered %d times", deliveries)
	}

	// The pin can be claimed again after release
	if _, err := ctrl.RequestIRQ(2, gpio.RisingEdge, func() { deliveries++ }); err != nil {
		t.Errorf("re-request after free: %v", err)
	}
}
