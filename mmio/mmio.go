// Package mmio is the register-access seam between device drivers and
// devices. On hardware these accesses are volatile loads and stores; in
// the machine model they dispatch to Go device implementations.
package mmio

// Region is a window of 32-bit device registers addressed by byte
// offset. Accesses never fail; reads of unimplemented registers return
// zero and writes to them are dropped, matching open-bus behavior.
type Region interface {
	Read32(off uint64) uint32
	Write32(off uint64, v uint32)
}

// SetBits32 sets mask bits in the register at off, read-modify-write.
func SetBits32(r Region, off uint64, mask uint32) {
	r.Write32(off, r.Read32(off)|mask)
}

// ClearBits32 clears mask bits in the register at off.
func ClearBits32(r Region, off uint64, mask uint32) {
	r.Write32(off, r.Read32(off)&^mask)
}

// Offset returns a view of r shifted by base, so a device mapped at a
// bus address can be driven with device-relative register offsets.
func Offset(r Region, base uint64) Region {
	return Func32{
		R: func(off uint64) uint32 { return r.Read32(base+off) },
		W: func(off uint64, v uint32) { r.Write32(base+off, v) },
	}
}

// Func32 adapts a pair of functions to the Region interface. A nil R
// reads zero; a nil W drops writes.
type Func32 struct {
	R func(off uint64) uint32
	W func(off uint64, v uint32)
}

func (f Func32) Read32(off uint64) uint32 {
	if f.R == nil {
		return 0
	}
	return f.R(off)
}

func (f Func32) Write32(off uint64, v uint32) {
	if f.W != nil {
		f.W(off, v)
	}
}
