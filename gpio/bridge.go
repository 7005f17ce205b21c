package gpio

import (
	"fmt"

	"litegpio/irq"
)

// DomainBridge translates between the bank's child interrupt space and
// its parent domain. The hardware exposes exactly one physical line for
// the whole bank, so every child pin resolves to the same parent line;
// only the sense type travels through unchanged.
type DomainBridge struct {
	parent irq.Parent
	line   irq.Line
}

// NewDomainBridge creates the bridge for a bank chained to line on
// parent.
func NewDomainBridge(parent irq.Parent, line irq.Line) *DomainBridge {
	return &DomainBridge{parent: parent, line: line}
}

// ChildToParent maps a child pin and its sense to the parent line the
// bank shares. The pin index is deliberately part of the signature even
// though this hardware ignores it: the child space is per controller,
// never a slice of some global identifier space.
func (b *DomainBridge) ChildToParent(pin int, sense Sense) (irq.Line, Sense) {
	return b.line, sense
}

// Line returns the shared parent line.
func (b *DomainBridge) Line() irq.Line {
	return b.line
}

// EOIParent signals end-of-interrupt upstream for the pin's interrupt.
// Sense plays no part in EOI; the translation only picks the line.
func (b *DomainBridge) EOIParent(pin int) {
	line, _ := b.ChildToParent(pin, SenseNone)
	b.parent.EOI(line)
}

// ForwardAffinity delegates an affinity request for the pin's interrupt
// to the parent domain. A bridge without parent linkage has nowhere to
// send it.
func (b *DomainBridge) ForwardAffinity(pin int, aff irq.Affinity) error {
	if b == nil || b.parent == nil {
		return fmt.Errorf("%w: no parent linkage for affinity", ErrUnsupported)
	}
	line, _ := b.ChildToParent(pin, SenseNone)
	return b.parent.SetAffinity(line, aff)
}
