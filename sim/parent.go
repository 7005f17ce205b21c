package sim

import (
	"fmt"
	"sync"

	"litegpio/irq"
)

// Parent is a synchronous in-process parent interrupt domain. Assert
// delivers a line to its bound chained handler on the caller's
// goroutine and does not return until the handler does, which gives
// chained controllers the non-reentrancy guarantee real delivery
// mechanisms provide.
//
// Enter/Exit framing, EOIs and affinity requests are recorded so tests
// can assert on them.
type Parent struct {
	mu        sync.Mutex
	handlers  map[irq.Line]irq.ChainedHandler
	inService map[irq.Line]bool
	eois      map[irq.Line]int
	affinity  map[irq.Line]irq.Affinity
}

var _ irq.Parent = (*Parent)(nil)

// NewParent creates a parent domain with no bound lines.
func NewParent() *Parent {
	return &Parent{
		handlers:  make(map[irq.Line]irq.ChainedHandler),
		inService: make(map[irq.Line]bool),
		eois:      make(map[irq.Line]int),
		affinity:  make(map[irq.Line]irq.Affinity),
	}
}

// BindChained implements irq.Parent. A line can carry one handler.
func (p *Parent) BindChained(line irq.Line, h irq.ChainedHandler) error {
	if h == nil {
		return fmt.Errorf("sim: nil chained handler for line %d", line)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.handlers[line]; ok {
		return fmt.Errorf("sim: line %d already bound", line)
	}
	p.handlers[line] = h
	return nil
}

// Assert delivers one physical assertion of line. Unbound lines are
// dropped.
func (p *Parent) Assert(line irq.Line) {
	p.mu.Lock()
	h := p.handlers[line]
	p.mu.Unlock()
	if h != nil {
		h.ServeIRQ()
	}
}

// Enter implements irq.Parent.
func (p *Parent) Enter(line irq.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inService[line] {
		panic(fmt.Sprintf("sim: chained dispatch re-entered for line %d", line))
	}
	p.inService[line] = true
}

// Exit implements irq.Parent.
func (p *Parent) Exit(line irq.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inService[line] = false
}

// EOI implements irq.Parent.
func (p *Parent) EOI(line irq.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eois[line]++
}

// SetAffinity implements irq.Parent, recording the request.
func (p *Parent) SetAffinity(line irq.Line, aff irq.Affinity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.affinity[line] = aff
	return nil
}

// EOICount returns how many EOIs were signalled for line.
func (p *Parent) EOICount(line irq.Line) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eois[line]
}

// Affinity returns the last affinity forwarded for line.
func (p *Parent) Affinity(line irq.Line) (irq.Affinity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	aff, ok := p.affinity[line]
	return aff, ok
}
