package mmio

import "testing"

// regFile is a tiny register bank for exercising the helpers.
type regFile map[uint64]uint32

func (r regFile) Read32(off uint64) uint32     { return r[off] }
func (r regFile) Write32(off uint64, v uint32) { r[off] = v }

func TestSetClearBits32(t *testing.T) {
	r := regFile{0x30: 0x0101}

	SetBits32(r, 0x30, 1<<8)
	if got := r.Read32(0x30); got != 0x0101 {
		t.Errorf("SetBits32 of an already-set bit changed the register: %#x", got)
	}

	SetBits32(r, 0x30, 1<<4)
	if got := r.Read32(0x30); got != 0x0111 {
		t.Errorf("After SetBits32(1<<4): %#x, want 0x111", got)
	}

	ClearBits32(r, 0x30, 1<<0|1<<8)
	if got := r.Read32(0x30); got != 0x0010 {
		t.Errorf("After ClearBits32: %#x, want 0x10", got)
	}
}

func TestFunc32(t *testing.T) {
	var lastOff uint64
	var lastVal uint32

	f := Func32{
		R: func(off uint64) uint32 { return uint32(off) + 1 },
		W: func(off uint64, v uint32) { lastOff, lastVal = off, v },
	}

	if got := f.Read32(0x18); got != 0x19 {
		t.Errorf("Read32(0x18) = %#x, want 0x19", got)
	}

	f.Write32(0x2C, 0x60)
	if lastOff != 0x2C || lastVal != 0x60 {
		t.Errorf("Write32 recorded (%#x, %#x), want (0x2c, 0x60)", lastOff, lastVal)
	}
}

func TestOffset(t *testing.T) {
	r := regFile{0x0900_0018: 0xAA}
	v := Offset(r, 0x0900_0000)

	if got := v.Read32(0x18); got != 0xAA {
		t.Errorf("Read32(0x18) through offset view = %#x, want 0xaa", got)
	}

	v.Write32(0x30, 0x301)
	if got := r[0x0900_0030]; got != 0x301 {
		t.Errorf("bus register 0x9000030 = %#x, want 0x301", got)
	}
}

func TestFunc32Nil(t *testing.T) {
	var f Func32

	if got := f.Read32(0); got != 0 {
		t.Errorf("nil R Read32 = %#x, want 0", got)
	}
	f.Write32(0, 0xFFFF_FFFF) // must not panic
}
