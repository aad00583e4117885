package bootloader

import (
	"io"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Core is one CPU core as the handoff sequence sees it: an exception
// level, a register file, and the three transitions the sequence is
// allowed to make (system-register writes, one privilege drop, one
// kernel entry). Implementations are the machine model and the
// hardware-accelerated backend.
type Core interface {
	// ID is the core's index. Core 0 owns the BSS clear.
	ID() int

	// CurrentEL reports the exception level the core executes at.
	CurrentEL() (arm64.EL, error)

	// ReadSys reads a system register.
	ReadSys(r arm64.SysReg) (uint64, error)

	// WriteSys installs a full register snapshot. The handoff sequence
	// never reads before writing; reset-time contents are undefined.
	WriteSys(r arm64.SysReg, v uint64) error

	// SetSP establishes the stack pointer. Must happen before any
	// call-like operation on the core.
	SetSP(v uint64) error

	// SP reports the current stack pointer.
	SP() (uint64, error)

	// DropEL performs the one-way exception return with the given
	// saved state. At most once per core, always downward. The
	// implementation enforces the same legality rules an eret does.
	DropEL(spsr uint64) error

	// Enter transfers control to the kernel entry point. On hardware
	// this never returns; models record the transfer and fail a
	// second attempt.
	Enter(entry uint64) error
}

// Memory is guest-physical memory as the boot path uses it. Offsets
// passed to ReadAt/WriteAt and addresses passed to Zero are
// guest-physical; the valid window is [Base, Base+Size).
type Memory interface {
	io.ReaderAt
	io.WriterAt

	// Zero clears size bytes starting at addr.
	Zero(addr, size uint64) error

	// Base is the guest-physical address of the first byte.
	Base() uint64

	// Size is the window length in bytes.
	Size() uint64
}

// memContains reports whether [addr, addr+size) lies inside mem.
func memContains(mem Memory, addr, size uint64) bool {
	base := mem.Base()
	if addr < base {
		return false
	}
	off := addr - base
	if off > mem.Size() {
		return false
	}
	return size <= mem.Size()-off
}
