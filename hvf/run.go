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

// DropEL performs the one-way exception return by installing the saved
// state as the live CPSR. The SPSR is validated the way an eret is:
// AArch64 encoding, an architected mode, a target strictly below the
// current level. Framework guests hold EL1 and EL0 only, so the only
// possible drop lands in EL0.
func (c *Core) DropEL(spsr uint64) error {
	if c == nil {
		return fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}
	if c.entered {
		return fmt.Errorf("hvf: core %d: %w", c.id, bootloader.ErrKernelEntered)
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

	cpsr, err := c.getReg(C.HV_REG_CPSR)
	if err != nil {
		return err
	}
	cur := arm64.ELFromCPSR(cpsr)
	if target := arm64.SPSRTargetEL(spsr); target >= cur {
		return c.illegalReturn(spsr, "target not below current level")
	}

	if err := c.setReg(C.HV_REG_CPSR, spsr); err != nil {
		return err
	}
	c.dropped = true
	return nil
}

func (c *Core) illegalReturn(spsr uint64, why string) error {
	return fmt.Errorf("hvf: core %d: eret with spsr %#x (%s): %w",
		c.id, spsr, why, bootloader.ErrIllegalReturn)
}

// Enter transfers control to the kernel: the PC is set to entry and
// the vCPU runs to its first exit, which LastExit then reports. The
// stack must be established first and a core enters exactly once.
func (c *Core) Enter(entry uint64) error {
	if c == nil {
		return fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}
	if c.entered {
		return fmt.Errorf("hvf: core %d: %w", c.id, bootloader.ErrKernelEntered)
	}
	if !c.spSet {
		return fmt.Errorf("hvf: core %d: %w", c.id, bootloader.ErrNoStack)
	}
	if entry%4 != 0 {
		return fmt.Errorf("hvf: core %d: entry %#x: %w", c.id, entry, bootloader.ErrEntryAlign)
	}

	if err := c.setReg(C.HV_REG_PC, entry); err != nil {
		return err
	}
	c.entered = true

	info, err := c.run()
	if err != nil {
		return fmt.Errorf("hvf: core %d: running vCPU: %w", c.id, err)
	}
	c.lastExit = info
	return nil
}

// Run resumes the vCPU after an exit and reports the next one. Only
// meaningful once Enter has handed off.
func (c *Core) Run() (ExitInfo, error) {
	if c == nil {
		return ExitInfo{}, fmt.Errorf("hvf: core is nil")
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ExitInfo{}, ErrCoreClosed
	}
	if !c.entered {
		return ExitInfo{}, fmt.Errorf("hvf: core %d: not entered", c.id)
	}

	info, err := c.run()
	if err != nil {
		return ExitInfo{}, fmt.Errorf("hvf: core %d: running vCPU: %w", c.id, err)
	}
	c.lastExit = info
	return info, nil
}

func (c *Core) run() (ExitInfo, error) {
	if err := hvErr(uint32(C.hv_vcpu_run(C.hv_vcpu_t(c.vcpu)))); err != nil {
		return ExitInfo{}, err
	}
	return c.decodeExit(), nil
}

// decodeExit reads the exit description the framework fills in on
// every return from hv_vcpu_run.
func (c *Core) decodeExit() ExitInfo {
	exit := (*C.hv_vcpu_exit_t)(c.exit)
	if exit == nil {
		return ExitInfo{Reason: ExitUnknown}
	}

	var info ExitInfo
	switch exit.reason {
	case C.HV_EXIT_REASON_EXCEPTION:
		info.Reason = ExitException
		info.ESR = uint64(exit.exception.syndrome)
		info.FAR = uint64(exit.exception.virtual_address)
	case C.HV_EXIT_REASON_VTIMER_ACTIVATED:
		info.Reason = ExitTimer
	case C.HV_EXIT_REASON_CANCELED:
		info.Reason = ExitCanceled
	default:
		info.Reason = ExitUnknown
	}
	return info
}
