package csr

import (
	"errors"
	"fmt"
)

// SubRegBits is the width of one CSR subregister on the 32-bit bus.
const SubRegBits = 32

// subRegStride is the byte distance between consecutive subregisters.
const subRegStride = 4

// ErrBadWidth reports a register width the spanning logic cannot carry.
var ErrBadWidth = errors.New("csr: register width out of range")

// Span returns the number of consecutive 32-bit subregisters needed to
// hold a logical register of the given bit width.
func Span(widthBits int) int {
	return (widthBits + SubRegBits - 1) / SubRegBits
}

// Bank is a window of CSRs at a base address. All span-wide accessors
// compose and decompose logical values across Span(width) consecutive
// subregisters, most-significant subregister first, matching the LiteX
// CSR layout.
type Bank struct {
	bus   Bus
	base  uint32
	width int
	span  int
}

// NewBank creates a bank of widthBits-wide logical registers starting at
// base. Logical values are limited to 64 bits (two subregisters).
func NewBank(bus Bus, base uint32, widthBits int) (*Bank, error) {
	if bus == nil {
		return nil, errors.New("csr: nil bus")
	}
	if widthBits < 1 || widthBits > 2*SubRegBits {
		return nil, fmt.Errorf("%w: %d bits", ErrBadWidth, widthBits)
	}
	return &Bank{
		bus:   bus,
		base:  base,
		width: widthBits,
		span:  Span(widthBits),
	}, nil
}

// Span returns the subregister span of the bank's logical registers.
func (b *Bank) Span() int {
	return b.span
}

// Read reads the single subregister at the given byte offset from base.
func (b *Bank) Read(offset uint32) (uint32, error) {
	return b.bus.Read32(b.base + offset)
}

// Write writes the single subregister at the given byte offset from base.
func (b *Bank) Write(offset uint32, value uint32) error {
	return b.bus.Write32(b.base+offset, value)
}

// ReadReg reads the logical register at offset, composing the bank's
// span of subregisters into one value. The subregister at the lowest
// address carries the most significant bits.
func (b *Bank) ReadReg(offset uint32) (uint64, error) {
	var v uint64
	for i := 0; i < b.span; i++ {
		w, err := b.bus.Read32(b.base + offset + uint32(i*subRegStride))
		if err != nil {
			return 0, err
		}
		v = v<<SubRegBits | uint64(w)
	}
	return v, nil
}

// WriteReg writes the logical register at offset, decomposing value
// across the bank's span of subregisters, most significant first.
func (b *Bank) WriteReg(offset uint32, value uint64) error {
	for i := 0; i < b.span; i++ {
		shift := uint(SubRegBits * (b.span - 1 - i))
		w := uint32(value >> shift)
		if err := b.bus.Write32(b.base+offset+uint32(i*subRegStride), w); err != nil {
			return err
		}
	}
	return nil
}

// UpdateReg performs a read-modify-write on the logical register at
// offset: bits selected by mask are replaced, all other bits keep their
// current value. The bank itself does not serialize the sequence;
// callers needing atomicity against other accessors hold their own lock
// around it.
func (b *Bank) UpdateReg(offset uint32, mask, bits uint64) error {
	old, err := b.ReadReg(offset)
	if err != nil {
		return err
	}
	return b.WriteReg(offset, (old&^mask)|(bits&mask))
}
