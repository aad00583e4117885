//go:build darwin && arm64

package hvf

/*
#cgo darwin LDFLAGS: -framework Hypervisor
#include <Hypervisor/hv_vcpu.h>
#include <Hypervisor/hv_vcpu_types.h>
*/
import "C"

import (
	"fmt"

	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Raw register accessors. Callers hold closeMu; resetState runs before
// the core is published and needs no lock.

func (c *Core) getReg(r C.hv_reg_t) (uint64, error) {
	var val C.ulonglong
	if err := hvErr(uint32(C.hv_vcpu_get_reg(C.hv_vcpu_t(c.vcpu), r, &val))); err != nil {
		return 0, err
	}
	return uint64(val), nil
}

func (c *Core) setReg(r C.hv_reg_t, v uint64) error {
	return hvErr(uint32(C.hv_vcpu_set_reg(C.hv_vcpu_t(c.vcpu), r, C.ulonglong(v))))
}

func (c *Core) getSys(r C.hv_sys_reg_t) (uint64, error) {
	var val C.ulonglong
	if err := hvErr(uint32(C.hv_vcpu_get_sys_reg(C.hv_vcpu_t(c.vcpu), r, &val))); err != nil {
		return 0, err
	}
	return uint64(val), nil
}

func (c *Core) setSys(r C.hv_sys_reg_t, v uint64) error {
	return hvErr(uint32(C.hv_vcpu_set_sys_reg(C.hv_vcpu_t(c.vcpu), r, C.ulonglong(v))))
}

// GetReg reads a general register.
func (c *Core) GetReg(r Reg) (uint64, error) {
	if c == nil {
		return 0, fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return 0, ErrCoreClosed
	}
	if r < RegX0 || r > RegCPSR {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRegister, r)
	}

	// SP has no hv_reg_t; it lives behind the system register API.
	if r == RegSP {
		return c.getSys(C.HV_SYS_REG_SP_EL0)
	}
	return c.getReg(regToHV(r))
}

// SetReg writes a general register.
func (c *Core) SetReg(r Reg, v uint64) error {
	if c == nil {
		return fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}
	if r < RegX0 || r > RegCPSR {
		return fmt.Errorf("%w: %d", ErrInvalidRegister, r)
	}

	if r == RegSP {
		return c.setSys(C.HV_SYS_REG_SP_EL0, v)
	}
	return c.setReg(regToHV(r), v)
}

// CurrentEL reports the exception level the core executes at, decoded
// from the live CPSR.
func (c *Core) CurrentEL() (arm64.EL, error) {
	if c == nil {
		return 0, fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return 0, ErrCoreClosed
	}

	cpsr, err := c.getReg(C.HV_REG_CPSR)
	if err != nil {
		return 0, err
	}
	return arm64.ELFromCPSR(cpsr), nil
}

// ReadSys reads a system register. CurrentEL is synthesized from the
// CPSR and the EL2 timer offset goes through the vtimer API; the
// framework exposes neither as a plain system register.
func (c *Core) ReadSys(r arm64.SysReg) (uint64, error) {
	if c == nil {
		return 0, fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return 0, ErrCoreClosed
	}

	switch r {
	case arm64.SysRegCurrentEL:
		cpsr, err := c.getReg(C.HV_REG_CPSR)
		if err != nil {
			return 0, err
		}
		return uint64(arm64.ELFromCPSR(cpsr)) << 2, nil
	case arm64.SysRegCNTVOFFEL2:
		var off C.uint64_t
		if err := hvErr(uint32(C.hv_vcpu_get_vtimer_offset(C.hv_vcpu_t(c.vcpu), &off))); err != nil {
			return 0, err
		}
		return uint64(off), nil
	}

	hr, ok := sysToHV(r)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRegister, r)
	}
	return c.getSys(hr)
}

// WriteSys installs a full register snapshot. The EL2 and EL3
// configuration registers do not exist for framework guests, so the
// handoff's configure step is only reachable on the modeled machine.
func (c *Core) WriteSys(r arm64.SysReg, v uint64) error {
	if c == nil {
		return fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}

	switch r {
	case arm64.SysRegCurrentEL, arm64.SysRegMPIDREL1:
		return fmt.Errorf("hvf: core %d: %v is read-only: %w", c.id, r, ErrInvalidRegister)
	case arm64.SysRegCNTVOFFEL2:
		return hvErr(uint32(C.hv_vcpu_set_vtimer_offset(C.hv_vcpu_t(c.vcpu), C.uint64_t(v))))
	}

	hr, ok := sysToHV(r)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidRegister, r)
	}
	return c.setSys(hr, v)
}

// SetSP establishes the boot stack. Cores run EL1h, so the dedicated
// EL1 stack pointer is the one that matters.
func (c *Core) SetSP(v uint64) error {
	if c == nil {
		return fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}
	if v%arm64.StackAlign != 0 {
		return fmt.Errorf("hvf: core %d: sp %#x: %w", c.id, v, bootloader.ErrStackAlign)
	}

	if err := c.setSys(C.HV_SYS_REG_SP_EL1, v); err != nil {
		return err
	}
	c.spSet = true
	return nil
}

// SP reads back the established stack pointer.
func (c *Core) SP() (uint64, error) {
	if c == nil {
		return 0, fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return 0, ErrCoreClosed
	}
	return c.getSys(C.HV_SYS_REG_SP_EL1)
}

// sysToHV maps the handoff's system register names onto the framework
// registers a guest actually has.
func sysToHV(r arm64.SysReg) (C.hv_sys_reg_t, bool) {
	switch r {
	case arm64.SysRegSCTLREL1:
		return C.HV_SYS_REG_SCTLR_EL1, true
	case arm64.SysRegSPEL1:
		return C.HV_SYS_REG_SP_EL1, true
	case arm64.SysRegVBAREL1:
		return C.HV_SYS_REG_VBAR_EL1, true
	case arm64.SysRegMPIDREL1:
		return C.HV_SYS_REG_MPIDR_EL1, true
	case arm64.SysRegESREL1:
		return C.HV_SYS_REG_ESR_EL1, true
	case arm64.SysRegFAREL1:
		return C.HV_SYS_REG_FAR_EL1, true
	default:
		return 0, false
	}
}

// regToHV maps the general register names onto hv_reg_t.
func regToHV(r Reg) C.hv_reg_t {
	switch r {
	case RegX0:
		return C.HV_REG_X0
	case RegX1:
		return C.HV_REG_X1
	case RegX2:
		return C.HV_REG_X2
	case RegX3:
		return C.HV_REG_X3
	case RegX4:
		return C.HV_REG_X4
	case RegX5:
		return C.HV_REG_X5
	case RegX6:
		return C.HV_REG_X6
	case RegX7:
		return C.HV_REG_X7
	case RegX8:
		return C.HV_REG_X8
	case RegX9:
		return C.HV_REG_X9
	case RegX10:
		return C.HV_REG_X10
	case RegX11:
		return C.HV_REG_X11
	case RegX12:
		return C.HV_REG_X12
	case RegX13:
		return C.HV_REG_X13
	case RegX14:
		return C.HV_REG_X14
	case RegX15:
		return C.HV_REG_X15
	case RegX16:
		return C.HV_REG_X16
	case RegX17:
		return C.HV_REG_X17
	case RegX18:
		return C.HV_REG_X18
	case RegX19:
		return C.HV_REG_X19
	case RegX20:
		return C.HV_REG_X20
	case RegX21:
		return C.HV_REG_X21
	case RegX22:
		return C.HV_REG_X22
	case RegX23:
		return C.HV_REG_X23
	case RegX24:
		return C.HV_REG_X24
	case RegX25:
		return C.HV_REG_X25
	case RegX26:
		return C.HV_REG_X26
	case RegX27:
		return C.HV_REG_X27
	case RegX28:
		return C.HV_REG_X28
	case RegFP:
		return C.HV_REG_FP
	case RegLR:
		return C.HV_REG_LR
	case RegPC:
		return C.HV_REG_PC
	case RegCPSR:
		return C.HV_REG_CPSR
	default:
		// Unreachable: callers validate the range first.
		return C.HV_REG_X0
	}
}
