package bootloader

import (
	"fmt"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Layout fixes the addresses the handoff sequence consumes: the boot
// stack base, the kernel entry point, and the BSS bounds. On real
// hardware these come from linker-provided symbols; here they come from
// the loaded image and the machine configuration.
type Layout struct {
	// StackBase is the bottom of the boot stack area. Core n's stack
	// grows down from StackBase + (n+1)*BootStackSize.
	StackBase uint64

	// Entry is the kernel entry point.
	Entry uint64

	// BSSStart and BSSEnd bound the uninitialized-data region core 0
	// zeroes before handoff. Both must be KernelAlign multiples; equal
	// bounds mean no BSS.
	BSSStart uint64
	BSSEnd   uint64
}

// StackTop returns the initial stack pointer for a core. Stacks grow
// downward, so the top is the end of the core's region.
func (l Layout) StackTop(core int) uint64 {
	return l.StackBase + uint64(core+1)*arm64.BootStackSize
}

// StackRegion returns the combined stack area for the given core count.
func (l Layout) StackRegion(cores int) (base, size uint64) {
	return l.StackBase, uint64(cores) * arm64.BootStackSize
}

// Validate checks every invariant the sequence relies on: stack
// alignment and fit, entry usability, BSS alignment, ordering and fit,
// and stack/BSS disjointness. Passing a nil Memory skips the range
// checks; cores is the number of cores that will boot.
func (l Layout) Validate(cores int, mem Memory) error {
	if cores < 1 {
		return fmt.Errorf("boot: core count %d invalid", cores)
	}

	if l.StackBase%arm64.StackAlign != 0 {
		return detailErr(ErrStackAlign, "stack base %#x", l.StackBase)
	}
	stackBase, stackSize := l.StackRegion(cores)
	if mem != nil && !memContains(mem, stackBase, stackSize) {
		return detailErr(ErrStackRange, "stack region [%#x, %#x)", stackBase, stackBase+stackSize)
	}

	if l.Entry == 0 {
		return ErrNoEntry
	}
	if l.Entry%4 != 0 {
		return detailErr(ErrEntryAlign, "entry %#x", l.Entry)
	}
	if mem != nil && !memContains(mem, l.Entry, 4) {
		return detailErr(ErrNoEntry, "entry %#x outside memory", l.Entry)
	}

	if l.BSSStart%arm64.KernelAlign != 0 || l.BSSEnd%arm64.KernelAlign != 0 {
		return detailErr(ErrBSSAlign, "bss [%#x, %#x)", l.BSSStart, l.BSSEnd)
	}
	if l.BSSEnd < l.BSSStart {
		return detailErr(ErrBSSRange, "bss end %#x before start %#x", l.BSSEnd, l.BSSStart)
	}
	if l.BSSEnd > l.BSSStart {
		bssSize := l.BSSEnd - l.BSSStart
		if mem != nil && !memContains(mem, l.BSSStart, bssSize) {
			return detailErr(ErrBSSRange, "bss [%#x, %#x)", l.BSSStart, l.BSSEnd)
		}
		if stackBase < l.BSSEnd && l.BSSStart < stackBase+stackSize {
			return detailErr(ErrRegionOverlap, "stack [%#x, %#x) vs bss [%#x, %#x)",
				stackBase, stackBase+stackSize, l.BSSStart, l.BSSEnd)
		}
	}

	return nil
}
