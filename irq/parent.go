package irq

// Parent is the upstream interrupt domain a chained controller hangs
// off. Enter and Exit frame one chained dispatch pass on the shared
// line; the delivery mechanism guarantees a new assertion of the same
// line is not processed until the bound handler returns.
type Parent interface {
	// Enter begins a chained dispatch pass for line
	Enter(line Line)

	// Exit ends a chained dispatch pass for line
	Exit(line Line)

	// EOI signals end-of-interrupt for line on the upstream chip
	EOI(line Line)

	// SetAffinity forwards an affinity request for line upstream
	SetAffinity(line Line, aff Affinity) error

	// BindChained binds the handler invoked when line is asserted.
	// The handler value is the opaque handle the delivery mechanism
	// carries; it resolves back to the owning controller through it.
	BindChained(line Line, h ChainedHandler) error
}

// ChainedHandler services one physical assertion of a shared parent
// line, re-dispatching it to the logical sources behind it.
type ChainedHandler interface {
	ServeIRQ()
}

// ChainedHandlerFunc adapts a function to the ChainedHandler interface.
type ChainedHandlerFunc func()

// ServeIRQ implements ChainedHandler.
func (f ChainedHandlerFunc) ServeIRQ() {
	if f != nil {
		f()
	}
}
