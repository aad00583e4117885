package arm64

// SysReg names a system register the boot path reads or writes.
type SysReg uint16

const (
	SysRegCurrentEL SysReg = iota
	SysRegSCTLREL1
	SysRegSCTLREL2
	SysRegSCTLREL3
	SysRegHCREL2
	SysRegSCREL3
	SysRegSPSREL2
	SysRegSPSREL3
	SysRegELREL2
	SysRegELREL3
	SysRegSPEL1
	SysRegVBAREL1
	SysRegMPIDREL1
	SysRegCNTHCTLEL2
	SysRegCNTVOFFEL2
	SysRegESREL1
	SysRegFAREL1
)

func (r SysReg) String() string {
	switch r {
	case SysRegCurrentEL:
		return "CurrentEL"
	case SysRegSCTLREL1:
		return "SCTLR_EL1"
	case SysRegSCTLREL2:
		return "SCTLR_EL2"
	case SysRegSCTLREL3:
		return "SCTLR_EL3"
	case SysRegHCREL2:
		return "HCR_EL2"
	case SysRegSCREL3:
		return "SCR_EL3"
	case SysRegSPSREL2:
		return "SPSR_EL2"
	case SysRegSPSREL3:
		return "SPSR_EL3"
	case SysRegELREL2:
		return "ELR_EL2"
	case SysRegELREL3:
		return "ELR_EL3"
	case SysRegSPEL1:
		return "SP_EL1"
	case SysRegVBAREL1:
		return "VBAR_EL1"
	case SysRegMPIDREL1:
		return "MPIDR_EL1"
	case SysRegCNTHCTLEL2:
		return "CNTHCTL_EL2"
	case SysRegCNTVOFFEL2:
		return "CNTVOFF_EL2"
	case SysRegESREL1:
		return "ESR_EL1"
	case SysRegFAREL1:
		return "FAR_EL1"
	default:
		return "SysReg?"
	}
}

// SCTLRForEL returns the SCTLR register owned by the given level.
// EL0 has none; it shares EL1's translation regime.
func SCTLRForEL(el EL) (SysReg, bool) {
	switch el {
	case EL1:
		return SysRegSCTLREL1, true
	case EL2:
		return SysRegSCTLREL2, true
	case EL3:
		return SysRegSCTLREL3, true
	default:
		return 0, false
	}
}
