package gpio

import "errors"

// Error kinds returned by the controller. All are recoverable; callers
// match them with errors.Is.
var (
	// ErrOutOfRange reports a pin index or mask that addresses bits at
	// or beyond the bank's pin count.
	ErrOutOfRange = errors.New("gpio: pin out of range")

	// ErrUnsupported reports an operation the bank's fixed wiring
	// cannot perform, such as a direction change on a bank wired the
	// other way or an affinity request without a parent domain.
	ErrUnsupported = errors.New("gpio: operation not supported")

	// ErrInvalidArgument reports an unrecognized argument value, such
	// as an unknown interrupt sense type.
	ErrInvalidArgument = errors.New("gpio: invalid argument")

	// ErrNoParentDomain reports interrupt setup or use on a controller
	// without a resolvable parent interrupt domain.
	ErrNoParentDomain = errors.New("gpio: no parent interrupt domain")

	// ErrDeviceAttach reports a controller that could not be attached
	// to its register region.
	ErrDeviceAttach = errors.New("gpio: device attach failed")
)
