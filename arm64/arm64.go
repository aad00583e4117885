// Package arm64 defines the architectural constants and register views
// consumed by the AArch64 reset-to-kernel handoff path: boot stack and
// image alignment, SCTLR_ELx / HCR_EL2 / SCR_EL3 control bits, SPSR_ELx
// encodings for the privilege drop, system register names, and ESR_ELx
// syndrome decoding.
//
// Every value here is part of the boot ABI and is guarded by an
// exact-value regression test; a single wrong bit in this package leaves
// a real core unrecoverable.
package arm64

// Boot memory layout constants.
const (
	// BootStackSize is the size in bytes of the early boot stack
	// reserved per core. Stacks grow downward from the top of each
	// core's region.
	BootStackSize = 0x4000

	// KernelAlign is the kernel image/section alignment. Every segment
	// boundary the boot sequence touches (BSS bounds included) must be
	// a multiple of this value.
	KernelAlign = 0x1000

	// StackAlign is the AAPCS64 stack alignment required at any public
	// interface. The established stack pointer must satisfy it.
	StackAlign = 16
)

// EL is an AArch64 exception level.
type EL uint8

const (
	EL0 EL = iota // user
	EL1           // kernel
	EL2           // hypervisor
	EL3           // secure monitor
)

func (e EL) String() string {
	switch e {
	case EL0:
		return "EL0"
	case EL1:
		return "EL1"
	case EL2:
		return "EL2"
	case EL3:
		return "EL3"
	default:
		return "EL?"
	}
}

// Valid reports whether e names an architected exception level.
func (e EL) Valid() bool { return e <= EL3 }

// ELFromCPSR extracts the exception level from a CPSR/SPSR-style value.
// M[3:2] holds the EL; CurrentEL reads deliver the same field.
func ELFromCPSR(v uint64) EL {
	return EL((v >> 2) & 0x3)
}
