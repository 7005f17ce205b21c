// Package csr provides access to LiteX CSR (configuration and status
// register) banks through a pluggable register bus.
//
// A Bus moves single 32-bit words to and from bus addresses. A Bank sits
// on top of a Bus and handles LiteX subregister spanning: a logical CSR
// wider than one machine word occupies several consecutive 32-bit
// subregisters, most-significant subregister first.
package csr

// Bus is the raw register transport. Implementations include the
// RAM-backed Mem bus (tests, simulation) and the remote bridge client
// that forwards accesses to a live target.
type Bus interface {
	// Read32 reads the 32-bit word at the given bus address
	Read32(addr uint32) (uint32, error)

	// Write32 writes a 32-bit word to the given bus address
	Write32(addr uint32, value uint32) error
}
