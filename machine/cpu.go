package machine

import (
	"fmt"

	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
	"github.com/yoshipep/aarch64-bootloader/exception"
)

// SysWrite is one logged system-register write.
type SysWrite struct {
	Reg arm64.SysReg
	Val uint64
}

// CPU models one core precisely enough to run the reset-to-kernel
// sequence against: an exception level, a system-register file, and
// the legality rules an eret enforces. Every register write lands in a
// log so tests can assert the write-once discipline.
type CPU struct {
	id      int
	el      arm64.EL
	sp      uint64
	pc      uint64
	spSet   bool
	dropped bool
	entered bool

	regs  map[arm64.SysReg]uint64
	log   []SysWrite
	fault *exception.State
}

var _ bootloader.Core = (*CPU)(nil)

func newCPU(id int, el arm64.EL) *CPU {
	return &CPU{
		id: id,
		el: el,
		regs: map[arm64.SysReg]uint64{
			// Bit 31 is RES1; Aff0 carries the core index.
			arm64.SysRegMPIDREL1: 1<<31 | uint64(id),
		},
	}
}

// NewCore returns a standalone core at the given reset level, outside
// any machine. Memory and bus wiring are the caller's concern.
func NewCore(id int, el arm64.EL) *CPU { return newCPU(id, el) }

// minEL returns the lowest exception level allowed to access r.
func minEL(r arm64.SysReg) arm64.EL {
	switch r {
	case arm64.SysRegSCTLREL3, arm64.SysRegSCREL3,
		arm64.SysRegSPSREL3, arm64.SysRegELREL3:
		return arm64.EL3
	case arm64.SysRegSCTLREL2, arm64.SysRegHCREL2,
		arm64.SysRegSPSREL2, arm64.SysRegELREL2,
		arm64.SysRegCNTHCTLEL2, arm64.SysRegCNTVOFFEL2:
		return arm64.EL2
	default:
		return arm64.EL1
	}
}

// readOnly reports registers an MSR cannot target.
func readOnly(r arm64.SysReg) bool {
	return r == arm64.SysRegCurrentEL || r == arm64.SysRegMPIDREL1
}

func (c *CPU) ID() int { return c.id }

func (c *CPU) CurrentEL() (arm64.EL, error) { return c.el, nil }

// PC returns the program counter; after a kernel entry it holds the
// entry point.
func (c *CPU) PC() uint64 { return c.pc }

// Entered reports whether the core already handed off to the kernel.
func (c *CPU) Entered() bool { return c.entered }

// Fault returns the last recorded exception, nil when clean.
func (c *CPU) Fault() *exception.State { return c.fault }

// pstate reconstructs the SPSR-format view of the current state:
// everything masked, AArch64, current EL on its dedicated stack.
func (c *CPU) pstate() uint64 {
	v := arm64.SPSRMaskAll | uint64(c.el)<<2
	if c.el != arm64.EL0 {
		v |= 1
	}
	return v
}

// trap records a synchronous exception with the given class and
// returns err unchanged.
func (c *CPU) trap(class arm64.Class, err error) error {
	c.fault = &exception.State{
		Kind: exception.Sync,
		Regs: exception.Regs{
			ESR:  uint64(arm64.MakeSyndrome(class, 0)),
			ELR:  c.pc,
			SPSR: c.pstate(),
		},
	}
	return err
}

func (c *CPU) ReadSys(r arm64.SysReg) (uint64, error) {
	if r == arm64.SysRegCurrentEL {
		return uint64(c.el) << 2, nil
	}
	if c.el < minEL(r) {
		return 0, c.trap(arm64.ClassSysReg,
			fmt.Errorf("machine: core %d: %v not readable at %v", c.id, r, c.el))
	}
	return c.regs[r], nil
}

func (c *CPU) WriteSys(r arm64.SysReg, v uint64) error {
	if readOnly(r) {
		return c.trap(arm64.ClassSysReg,
			fmt.Errorf("machine: core %d: %v is read-only", c.id, r))
	}
	if c.el < minEL(r) {
		return c.trap(arm64.ClassSysReg,
			fmt.Errorf("machine: core %d: %v not writable at %v", c.id, r, c.el))
	}
	c.regs[r] = v
	c.log = append(c.log, SysWrite{Reg: r, Val: v})
	return nil
}

func (c *CPU) SetSP(v uint64) error {
	if v%arm64.StackAlign != 0 {
		return c.trap(arm64.ClassSPAlign,
			fmt.Errorf("machine: core %d: sp %#x: %w", c.id, v, bootloader.ErrStackAlign))
	}
	c.sp = v
	c.spSet = true
	return nil
}

func (c *CPU) SP() (uint64, error) { return c.sp, nil }

// DropEL performs the one-way exception return. The SPSR is validated
// the way the hardware validates an eret: AArch64 encoding, an
// architected mode, a target strictly below the current level, and a
// register-width configuration that agrees with the SPSR. The width
// comes from HCR_EL2.RW when returning from EL2 and SCR_EL3.RW when
// returning from EL3, which is why those registers must be programmed
// before the drop.
func (c *CPU) DropEL(spsr uint64) error {
	if c.entered {
		return fmt.Errorf("machine: core %d: %w", c.id, bootloader.ErrKernelEntered)
	}
	if c.dropped {
		return c.illegalReturn(spsr, "second drop")
	}
	if !arm64.SPSRIsAArch64(spsr) {
		return c.illegalReturn(spsr, "aarch32 target")
	}
	if !arm64.SPSRLegalMode(spsr) {
		return c.illegalReturn(spsr, "reserved mode")
	}
	target := arm64.SPSRTargetEL(spsr)
	if target >= c.el {
		return c.illegalReturn(spsr, "target not below current level")
	}
	switch c.el {
	case arm64.EL2:
		if c.regs[arm64.SysRegHCREL2]&arm64.HCRRW == 0 {
			return c.illegalReturn(spsr, "HCR_EL2.RW selects AArch32")
		}
	case arm64.EL3:
		if c.regs[arm64.SysRegSCREL3]&arm64.SCRRW == 0 {
			return c.illegalReturn(spsr, "SCR_EL3.RW selects AArch32")
		}
	}

	// The eret consumes SPSR_ELx, so the drop logs that write like
	// any other.
	spsrReg := arm64.SysRegSPSREL2
	if c.el == arm64.EL3 {
		spsrReg = arm64.SysRegSPSREL3
	}
	c.regs[spsrReg] = spsr
	c.log = append(c.log, SysWrite{Reg: spsrReg, Val: spsr})

	c.el = target
	c.dropped = true
	return nil
}

func (c *CPU) illegalReturn(spsr uint64, why string) error {
	return c.trap(arm64.ClassIllegalState,
		fmt.Errorf("machine: core %d: eret at %v with spsr %#x (%s): %w",
			c.id, c.el, spsr, why, bootloader.ErrIllegalReturn))
}

// Enter transfers control to the kernel. The stack must be
// established first and a core hands off exactly once.
func (c *CPU) Enter(entry uint64) error {
	if c.entered {
		return fmt.Errorf("machine: core %d: %w", c.id, bootloader.ErrKernelEntered)
	}
	if !c.spSet {
		return fmt.Errorf("machine: core %d: %w", c.id, bootloader.ErrNoStack)
	}
	if entry%4 != 0 {
		return c.trap(arm64.ClassPCAlign,
			fmt.Errorf("machine: core %d: entry %#x: %w", c.id, entry, bootloader.ErrEntryAlign))
	}
	c.pc = entry
	c.entered = true
	return nil
}

// Writes returns every value written to r, in order.
func (c *CPU) Writes(r arm64.SysReg) []uint64 {
	var vals []uint64
	for _, w := range c.log {
		if w.Reg == r {
			vals = append(vals, w.Val)
		}
	}
	return vals
}

// WriteLog returns a copy of the full system-register write log.
func (c *CPU) WriteLog() []SysWrite {
	log := make([]SysWrite, len(c.log))
	copy(log, c.log)
	return log
}
