package arm64

// ***************************************
// SCTLR_ELx, System Control Register.
// D13.2.113 of the ARMv8-A Reference Manual.
// ***************************************

const (
	// SCTLRMMU is the M bit: stage 1 address translation enable.
	SCTLRMMU uint64 = 1 << 0
	// SCTLRDCache is the C bit: data/unified cache enable.
	SCTLRDCache uint64 = 1 << 2
	// SCTLRICache is the I bit: instruction cache enable.
	SCTLRICache uint64 = 1 << 12
)

// SCTLRReset is the control snapshot the handoff installs: a full
// constructed value with the MMU and both cache enables clear, so the
// kernel starts from a deterministic disabled state instead of
// inheriting undefined reset contents. Written whole, never
// read-modify-written.
const SCTLRReset uint64 = 0

// ***************************************
// HCR_EL2, Hypervisor Configuration Register.
// D13.2.46 of the ARMv8-A Reference Manual.
// ***************************************

const (
	// HCRHCD is the HCD bit: HVC instruction disable. Set before any
	// hypervisor-call handler exists.
	HCRHCD uint64 = 1 << 29
	// HCRRW is the RW bit: EL1 and below execute AArch64.
	HCRRW uint64 = 1 << 31
)

// HCREL2Reset is the value programmed into HCR_EL2 when the core is
// entered at EL2: lower levels run 64-bit and hypervisor calls do not
// trap. Only meaningful from EL2; never touched on an EL1 entry.
const HCREL2Reset = HCRRW | HCRHCD

// ***************************************
// SCR_EL3, Secure Configuration Register.
// D13.2.99 of the ARMv8-A Reference Manual.
// ***************************************

const (
	// SCRNS is the NS bit: lower exception levels are non-secure.
	SCRNS uint64 = 1 << 0
	// SCRRes1 covers the two reserved-one bits [5:4].
	SCRRes1 uint64 = 3 << 4
	// SCRRW is the RW bit: the next lower level executes AArch64.
	SCRRW uint64 = 1 << 10
)

// SCREL3Reset is the value programmed into SCR_EL3 when the core is
// entered at EL3, making the direct drop into non-secure AArch64 EL1
// architecturally legal.
const SCREL3Reset = SCRNS | SCRRes1 | SCRRW // 0x431

// ***************************************
// SPSR_ELx, Saved Program Status Register.
// C5.2.18 of the ARMv8-A Reference Manual.
// ***************************************

const (
	// SPSRModeEL1h selects EL1 with the dedicated SP_EL1 stack,
	// M[3:0] = 0b0101.
	SPSRModeEL1h uint64 = 5
	// SPSRModeMask covers the M[3:0] mode field.
	SPSRModeMask uint64 = 0xF
	// SPSRAArch64 is M[4] clear: exception return stays in AArch64.
	SPSRAArch64 uint64 = 0 << 4
	// SPSRMaskFIQ is the F bit.
	SPSRMaskFIQ uint64 = 1 << 6
	// SPSRMaskIRQ is the I bit.
	SPSRMaskIRQ uint64 = 1 << 7
	// SPSRMaskSError is the A bit.
	SPSRMaskSError uint64 = 1 << 8
	// SPSRMaskDebug is the D bit.
	SPSRMaskDebug uint64 = 1 << 9
)

// SPSRMaskAll sets all four exception masks. Until the kernel installs
// a vector table any taken exception is unrecoverable, so every mask
// stays set across the drop.
const SPSRMaskAll = SPSRMaskFIQ | SPSRMaskIRQ | SPSRMaskSError | SPSRMaskDebug // 0x3C0

// SPSRKernel is the constructed saved state used for the one-way
// EL2/EL3 to EL1 transition: AArch64, EL1h, everything masked.
const SPSRKernel = SPSRModeEL1h | SPSRAArch64 | SPSRMaskAll // 0x3C5

// SPSRTargetEL decodes the exception level an eret with this SPSR
// lands in.
func SPSRTargetEL(spsr uint64) EL {
	return EL((spsr & SPSRModeMask) >> 2)
}

// SPSRIsAArch64 reports whether the SPSR selects AArch64 execution
// state for the return (M[4] clear).
func SPSRIsAArch64(spsr uint64) bool {
	return spsr&(1<<4) == 0
}

// SPSRUsesSPSel reports whether the mode field selects the target
// level's dedicated stack pointer (the "h" forms, M[0] set).
func SPSRUsesSPSel(spsr uint64) bool {
	return spsr&1 == 1
}

// SPSRLegalMode reports whether M[3:0] is an architected AArch64 mode
// encoding. EL0 has no "h" form and the remaining values are reserved;
// an eret with a reserved mode is an illegal exception return.
func SPSRLegalMode(spsr uint64) bool {
	switch spsr & SPSRModeMask {
	case 0x0, 0x4, 0x5, 0x8, 0x9, 0xC, 0xD:
		return true
	}
	return false
}
