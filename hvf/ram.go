package hvf

import (
	"fmt"
	"io"

	bootloader "github.com/yoshipep/aarch64-bootloader"
)

// RAM is guest-physical memory shared with the VM: anonymous host
// pages mirrored into the guest address space at Base. Offsets on the
// io.ReaderAt/io.WriterAt methods are guest-physical addresses and the
// valid window is [Base, Base+Size), the same contract the modeled
// machine's memory has, so image loading and the BSS clear run
// unchanged against hardware.
type RAM struct {
	vm     *VM
	base   uint64
	data   []byte
	mapped bool
}

var _ bootloader.Memory = (*RAM)(nil)

func (r *RAM) ReadAt(p []byte, addr int64) (int, error) {
	off, ok := r.offset(uint64(addr))
	if !ok {
		return 0, fmt.Errorf("hvf: read at %#x outside ram: %w", addr, io.EOF)
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *RAM) WriteAt(p []byte, addr int64) (int, error) {
	off, ok := r.offset(uint64(addr))
	if !ok {
		return 0, fmt.Errorf("hvf: write at %#x outside ram", addr)
	}
	n := copy(r.data[off:], p)
	if n < len(p) {
		return n, fmt.Errorf("hvf: write [%#x, %#x) runs past ram: %w",
			addr, uint64(addr)+uint64(len(p)), io.ErrShortWrite)
	}
	return n, nil
}

// Zero clears [addr, addr+size).
func (r *RAM) Zero(addr, size uint64) error {
	off, ok := r.offset(addr)
	if !ok || size > uint64(len(r.data))-off {
		return fmt.Errorf("hvf: zero [%#x, %#x) outside ram", addr, addr+size)
	}
	clear(r.data[off : off+size])
	return nil
}

func (r *RAM) Base() uint64 { return r.base }
func (r *RAM) Size() uint64 { return uint64(len(r.data)) }

// Bytes exposes the backing pages, for loading images or inspecting
// what the guest wrote.
func (r *RAM) Bytes() []byte { return r.data }

// Close removes the guest mapping and releases the host pages.
// Idempotent; close the RAM before the VM that maps it.
func (r *RAM) Close() error {
	if r == nil || r.data == nil {
		return nil
	}
	return r.free()
}

func (r *RAM) offset(addr uint64) (uint64, bool) {
	if addr < r.base {
		return 0, false
	}
	off := addr - r.base
	if off >= uint64(len(r.data)) {
		return 0, false
	}
	return off, true
}
