package bootloader

import (
	"fmt"
	"time"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Boot runs the reset-to-kernel handoff sequence on one core: detect
// the entry exception level, configure the hypervisor/secure state if
// entered above EL1, drop to EL1 with a constructed SPSR, establish the
// boot stack, install a clean SCTLR_EL1 snapshot, clear BSS (core 0),
// and enter the kernel. The steps are strictly ordered and the sequence
// is single-pass; any failure aborts with the step name wrapped around
// the cause.
func Boot(c Core, mem Memory, l Layout) (*Handoff, error) {
	start := time.Now()
	recordBoot()
	defer func() {
		recordBootTime(time.Since(start))
	}()

	if c == nil {
		return nil, fmt.Errorf("boot: nil core")
	}
	if mem == nil {
		return nil, fmt.Errorf("boot: nil memory")
	}
	if err := l.Validate(c.ID()+1, mem); err != nil {
		return nil, err
	}

	// 1. Detect-EL. The reset level is hardware-chosen, not ours.
	entryEL, err := c.CurrentEL()
	if err != nil {
		return nil, fmt.Errorf("detect-el: %w", err)
	}
	if entryEL < arm64.EL1 || entryEL > arm64.EL3 {
		recordFault()
		return nil, detailErr(ErrBadEntryEL, "detect-el: %v", entryEL)
	}

	h := &Handoff{Core: c.ID(), EntryEL: entryEL, Entry: l.Entry}

	// 2. Configure the level we are about to leave. HCR_EL2 only from
	// EL2, SCR_EL3 only from EL3; an EL1 entry inherits whatever state
	// firmware left and must not touch either.
	switch entryEL {
	case arm64.EL2:
		if err := c.WriteSys(arm64.SysRegHCREL2, arm64.HCREL2Reset); err != nil {
			recordFault()
			return nil, fmt.Errorf("configure-hypervisor: %w", err)
		}
		recordSysRegWrite()
	case arm64.EL3:
		if err := c.WriteSys(arm64.SysRegSCREL3, arm64.SCREL3Reset); err != nil {
			recordFault()
			return nil, fmt.Errorf("configure-secure: %w", err)
		}
		recordSysRegWrite()
	}

	// 3 + 4. Build-SPSR and Drop-EL. The saved state is a constructed
	// snapshot: AArch64, EL1h, all four exception masks set. The drop
	// happens at most once and never backward; from EL1 both steps are
	// a no-op.
	if entryEL > arm64.EL1 {
		spsr := arm64.SPSRKernel
		if err := c.DropEL(spsr); err != nil {
			recordFault()
			return nil, fmt.Errorf("drop-el: %w", err)
		}
		h.SPSR = spsr
		recordELDrop()
	}

	// 5. Establish-Stack, strictly before anything that could need a
	// calling convention.
	top := l.StackTop(c.ID())
	if err := c.SetSP(top); err != nil {
		recordFault()
		return nil, fmt.Errorf("establish-stack: %w", err)
	}
	h.SP = top

	// 6. Reset-Control-State: one whole-register write, never a
	// read-modify-write of undefined reset contents.
	if err := c.WriteSys(arm64.SysRegSCTLREL1, arm64.SCTLRReset); err != nil {
		recordFault()
		return nil, fmt.Errorf("reset-control-state: %w", err)
	}
	h.SCTLR = arm64.SCTLRReset
	recordSysRegWrite()

	// 7. Clear-BSS. Single writer: core 0. Bounds were validated
	// KernelAlign-aligned, so the clear can use full-word stores.
	if c.ID() == 0 && l.BSSEnd > l.BSSStart {
		n := l.BSSEnd - l.BSSStart
		if err := mem.Zero(l.BSSStart, n); err != nil {
			recordFault()
			return nil, fmt.Errorf("clear-bss: %w", err)
		}
		h.BSSBytes = n
		recordBSSCleared(n)
	}

	if el, err := c.CurrentEL(); err == nil {
		h.EL = el
	}

	// 8. Enter-Kernel: one-way. The model fences re-entry; hardware
	// simply never comes back.
	if err := c.Enter(l.Entry); err != nil {
		recordFault()
		return nil, fmt.Errorf("enter-kernel: %w", err)
	}
	recordHandoff()

	return h, nil
}

// BootAll boots every core through the handoff sequence. Core 0 goes
// first since it owns the BSS clear; the remaining cores follow in
// order. The first failing core aborts the whole boot.
func BootAll(cores []Core, mem Memory, l Layout) ([]*Handoff, error) {
	if len(cores) == 0 {
		return nil, fmt.Errorf("boot: no cores")
	}
	if err := l.Validate(len(cores), mem); err != nil {
		return nil, err
	}

	handoffs := make([]*Handoff, 0, len(cores))
	boot := func(c Core) error {
		h, err := Boot(c, mem, l)
		if err != nil {
			return fmt.Errorf("core %d: %w", c.ID(), err)
		}
		handoffs = append(handoffs, h)
		return nil
	}

	for _, c := range cores {
		if c.ID() == 0 {
			if err := boot(c); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range cores {
		if c.ID() != 0 {
			if err := boot(c); err != nil {
				return nil, err
			}
		}
	}
	return handoffs, nil
}
