// Package irq models a small hierarchy of interrupt domains on the host
// side: logical interrupt lines, the domains that map hardware interrupt
// indexes to them, and the parent-domain contract a chained controller
// hangs off.
package irq

import (
	"errors"
	"fmt"
	"sync"
)

// Line is a logical interrupt number inside a domain. Line 0 is never
// allocated and means "no mapping".
type Line uint32

// Hwirq is a hardware interrupt index within a domain, e.g. a pin index
// on a GPIO bank.
type Hwirq uint32

// Handler services one logical interrupt delivery.
type Handler func()

// Affinity is a bitmask of target CPUs for interrupt delivery.
type Affinity uint64

// ErrMapped reports an attempt to map a hwirq that already has a
// logical line.
var ErrMapped = errors.New("irq: hwirq already mapped")

// Domain maps hardware interrupt indexes to logical lines and holds the
// handler installed for each line. The dispatcher of a chained
// controller resolves pending hardware indexes through Mapping and
// delivers them with Dispatch.
type Domain struct {
	mu       sync.Mutex
	name     string
	next     Line
	mappings map[Hwirq]Line
	handlers map[Line]Handler
}

// NewDomain creates an empty domain. The name appears in diagnostics
// only.
func NewDomain(name string) *Domain {
	return &Domain{
		name:     name,
		next:     1,
		mappings: make(map[Hwirq]Line),
		handlers: make(map[Line]Handler),
	}
}

// Name returns the domain's diagnostic name.
func (d *Domain) Name() string {
	return d.name
}

// Map allocates a logical line for hw and installs its handler.
func (d *Domain) Map(hw Hwirq, h Handler) (Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.mappings[hw]; ok {
		return 0, fmt.Errorf("%w: %s hwirq %d", ErrMapped, d.name, hw)
	}
	line := d.next
	d.next++
	d.mappings[hw] = line
	d.handlers[line] = h
	return line, nil
}

// Unmap removes the mapping and handler for hw, if any.
func (d *Domain) Unmap(hw Hwirq) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if line, ok := d.mappings[hw]; ok {
		delete(d.mappings, hw)
		delete(d.handlers, line)
	}
}

// Mapping resolves hw to its logical line. The second return is false
// when no mapping exists.
func (d *Domain) Mapping(hw Hwirq) (Line, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	line, ok := d.mappings[hw]
	return line, ok
}

// Dispatch invokes the handler installed for line. It reports false when
// the line has no handler. The handler runs without the domain lock held
// so it may map or unmap lines itself.
func (d *Domain) Dispatch(line Line) bool {
	d.mu.Lock()
	h := d.handlers[line]
	d.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}
