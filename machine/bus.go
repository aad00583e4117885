package machine

import (
	"fmt"
	"sync"

	"github.com/yoshipep/aarch64-bootloader/mmio"
)

// Bus dispatches 32-bit device accesses by guest-physical address. It
// implements mmio.Region itself, with addresses as offsets, so nested
// dispatch composes.
type Bus struct {
	mu      sync.RWMutex
	windows []window
}

type window struct {
	base uint64
	size uint64
	dev  mmio.Region
}

func NewBus() *Bus { return &Bus{} }

// Map installs dev at [base, base+size). Overlapping windows are
// rejected; device windows never move once mapped.
func (b *Bus) Map(base, size uint64, dev mmio.Region) error {
	if size == 0 || dev == nil {
		return fmt.Errorf("machine: empty device window at %#x", base)
	}
	if base+size < base {
		return fmt.Errorf("machine: device window at %#x wraps", base)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.windows {
		if base < w.base+w.size && w.base < base+size {
			return fmt.Errorf("machine: window [%#x, %#x) overlaps [%#x, %#x)",
				base, base+size, w.base, w.base+w.size)
		}
	}
	b.windows = append(b.windows, window{base: base, size: size, dev: dev})
	return nil
}

// Read32 dispatches a device read; unmapped addresses read zero.
func (b *Bus) Read32(addr uint64) uint32 {
	if dev, off, ok := b.find(addr); ok {
		return dev.Read32(off)
	}
	return 0
}

// Write32 dispatches a device write; unmapped addresses drop it.
func (b *Bus) Write32(addr uint64, v uint32) {
	if dev, off, ok := b.find(addr); ok {
		dev.Write32(off, v)
	}
}

func (b *Bus) find(addr uint64) (mmio.Region, uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, w := range b.windows {
		if addr >= w.base && addr-w.base < w.size {
			return w.dev, addr - w.base, true
		}
	}
	return nil, 0, false
}
