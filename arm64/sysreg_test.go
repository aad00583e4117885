package arm64

import "testing"

func TestSysRegString(t *testing.T) {
	tests := []struct {
		reg  SysReg
		want string
	}{
		{SysRegCurrentEL, "CurrentEL"},
		{SysRegSCTLREL1, "SCTLR_EL1"},
		{SysRegHCREL2, "HCR_EL2"},
		{SysRegSCREL3, "SCR_EL3"},
		{SysRegSPSREL2, "SPSR_EL2"},
		{SysRegSPSREL3, "SPSR_EL3"},
		{SysRegELREL2, "ELR_EL2"},
		{SysRegELREL3, "ELR_EL3"},
		{SysRegSPEL1, "SP_EL1"},
		{SysRegVBAREL1, "VBAR_EL1"},
		{SysRegMPIDREL1, "MPIDR_EL1"},
		{SysRegCNTHCTLEL2, "CNTHCTL_EL2"},
		{SysRegCNTVOFFEL2, "CNTVOFF_EL2"},
		{SysRegESREL1, "ESR_EL1"},
		{SysRegFAREL1, "FAR_EL1"},
		{SysReg(0xFFF), "SysReg?"},
	}
	for _, tt := range tests {
		if got := tt.reg.String(); got != tt.want {
			t.Errorf("SysReg(%d).String() = %q, want %q", uint16(tt.reg), got, tt.want)
		}
	}
}

func TestSCTLRForEL(t *testing.T) {
	tests := []struct {
		el   EL
		want SysReg
		ok   bool
	}{
		{EL0, 0, false},
		{EL1, SysRegSCTLREL1, true},
		{EL2, SysRegSCTLREL2, true},
		{EL3, SysRegSCTLREL3, true},
	}
	for _, tt := range tests {
		got, ok := SCTLRForEL(tt.el)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("SCTLRForEL(%v) = (%v, %v), want (%v, %v)", tt.el, got, ok, tt.want, tt.ok)
		}
	}
}
