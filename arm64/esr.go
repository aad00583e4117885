package arm64

// ***************************************
// ESR_ELx, Exception Syndrome Register.
// D13.2.36 of the ARMv8-A Reference Manual.
// ***************************************

const (
	esrECShift = 26
	esrECMask  = 0x3F << esrECShift
	esrILBit   = 1 << 25
	esrISSMask = (1 << 25) - 1
)

// Syndrome is an ESR_ELx value describing a taken exception.
type Syndrome uint64

// Class returns the exception class field EC, bits[31:26].
func (s Syndrome) Class() Class {
	return Class((uint64(s) & esrECMask) >> esrECShift)
}

// ISS returns the instruction-specific syndrome, bits[24:0].
func (s Syndrome) ISS() uint32 {
	return uint32(uint64(s) & esrISSMask)
}

// IL reports the instruction length bit: true for a 32-bit trapped
// instruction.
func (s Syndrome) IL() bool {
	return uint64(s)&esrILBit != 0
}

// Class is the ESR_ELx.EC exception class.
type Class uint8

// Exception classes the boot path can observe. Values follow the
// ESR_ELx.EC encoding table.
const (
	ClassUnknown      Class = 0x00
	ClassWFx          Class = 0x01
	ClassIllegalState Class = 0x0E
	ClassSVC64        Class = 0x15
	ClassHVC64        Class = 0x16
	ClassSMC64        Class = 0x17
	ClassSysReg       Class = 0x18
	ClassInstAbortLow Class = 0x20
	ClassInstAbortCur Class = 0x21
	ClassPCAlign      Class = 0x22
	ClassDataAbortLow Class = 0x24
	ClassDataAbortCur Class = 0x25
	ClassSPAlign      Class = 0x26
	ClassSError       Class = 0x2F
	ClassBkptLow      Class = 0x30
	ClassBkptCur      Class = 0x31
	ClassStepLow      Class = 0x32
	ClassStepCur      Class = 0x33
	ClassWatchptLow   Class = 0x34
	ClassWatchptCur   Class = 0x35
	ClassBRK64        Class = 0x3C
)

func (c Class) String() string {
	switch c {
	case ClassUnknown:
		return "unknown"
	case ClassWFx:
		return "WFI/WFE"
	case ClassIllegalState:
		return "illegal execution state"
	case ClassSVC64:
		return "SVC (AArch64)"
	case ClassHVC64:
		return "HVC (AArch64)"
	case ClassSMC64:
		return "SMC (AArch64)"
	case ClassSysReg:
		return "MSR/MRS trap"
	case ClassInstAbortLow:
		return "instruction abort, lower EL"
	case ClassInstAbortCur:
		return "instruction abort, current EL"
	case ClassPCAlign:
		return "PC alignment fault"
	case ClassDataAbortLow:
		return "data abort, lower EL"
	case ClassDataAbortCur:
		return "data abort, current EL"
	case ClassSPAlign:
		return "SP alignment fault"
	case ClassSError:
		return "SError"
	case ClassBkptLow:
		return "breakpoint, lower EL"
	case ClassBkptCur:
		return "breakpoint, current EL"
	case ClassStepLow:
		return "software step, lower EL"
	case ClassStepCur:
		return "software step, current EL"
	case ClassWatchptLow:
		return "watchpoint, lower EL"
	case ClassWatchptCur:
		return "watchpoint, current EL"
	case ClassBRK64:
		return "BRK (AArch64)"
	default:
		return "unrecognized class"
	}
}

// MakeSyndrome builds an ESR value from a class and ISS, with IL set
// for a 32-bit instruction. Used by machine models when raising
// synthetic exceptions.
func MakeSyndrome(c Class, iss uint32) Syndrome {
	return Syndrome(uint64(c)<<esrECShift | esrILBit | uint64(iss)&esrISSMask)
}
