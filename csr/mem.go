package csr

import (
	"fmt"
	"sync"
)

// Mem is a RAM-backed Bus. It exists for tests and for running the
// controller against a simulated device without hardware attached.
type Mem struct {
	mu    sync.Mutex
	words map[uint32]uint32
}

// NewMem creates an empty memory bus. All addresses read as zero until
// written.
func NewMem() *Mem {
	return &Mem{words: make(map[uint32]uint32)}
}

// Read32 reads the word at addr
func (m *Mem) Read32(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, fmt.Errorf("csr: unaligned read at 0x%08x", addr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[addr], nil
}

// Write32 writes a word to addr
func (m *Mem) Write32(addr uint32, value uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("csr: unaligned write at 0x%08x", addr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[addr] = value
	return nil
}
