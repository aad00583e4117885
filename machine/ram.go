package machine

import (
	"fmt"
	"io"
)

// RAM is guest-physical memory backed by a host allocation. Offsets on
// the io.ReaderAt/io.WriterAt methods are guest-physical addresses;
// the valid window is [Base, Base+Size).
type RAM struct {
	base   uint64
	data   []byte
	mapped bool
}

func newRAM(base, size uint64) (*RAM, error) {
	if size == 0 {
		return nil, fmt.Errorf("machine: zero-size guest ram")
	}
	if uint64(int(size)) != size {
		return nil, fmt.Errorf("machine: guest ram size %#x overflows the host", size)
	}
	data, mapped, err := allocRAM(size)
	if err != nil {
		return nil, fmt.Errorf("machine: allocating %d MiB guest ram: %w", size>>20, err)
	}
	return &RAM{base: base, data: data, mapped: mapped}, nil
}

func (r *RAM) free() error {
	data, mapped := r.data, r.mapped
	r.data, r.mapped = nil, false
	return freeRAM(data, mapped)
}

func (r *RAM) ReadAt(p []byte, addr int64) (int, error) {
	off, ok := r.offset(uint64(addr))
	if !ok {
		return 0, fmt.Errorf("machine: read at %#x outside ram: %w", addr, io.EOF)
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
		return 0, fmt.Errorf("machine: write at %#x outside ram", addr)
	}
	n := copy(r.data[off:], p)
	if n < len(p) {
		return n, fmt.Errorf("machine: write [%#x, %#x) runs past ram: %w",
			addr, uint64(addr)+uint64(len(p)), io.ErrShortWrite)
	}
	return n, nil
}

// Zero clears [addr, addr+size).
func (r *RAM) Zero(addr, size uint64) error {
	off, ok := r.offset(addr)
	if !ok || size > uint64(len(r.data))-off {
		return fmt.Errorf("machine: zero [%#x, %#x) outside ram", addr, addr+size)
	}
	clear(r.data[off : off+size])
	return nil
}

func (r *RAM) Base() uint64 { return r.base }
func (r *RAM) Size() uint64 { return uint64(len(r.data)) }

// Bytes exposes the backing store, for mapping into an accelerated
// backend or inspecting loaded images.
func (r *RAM) Bytes() []byte { return r.data }

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
