package arm64

import "testing"

func TestSyndromeClass(t *testing.T) {
	tests := []struct {
		name string
		esr  uint64
		want Class
	}{
		{"zero", 0, ClassUnknown},
		{"BRK64", 0x3C << 26, ClassBRK64},
		{"data abort lower", 0x24 << 26, ClassDataAbortLow},
		{"data abort current", 0x25 << 26, ClassDataAbortCur},
		{"instruction abort lower", 0x20 << 26, ClassInstAbortLow},
		{"SVC64", 0x15 << 26, ClassSVC64},
		{"HVC64", 0x16 << 26, ClassHVC64},
		{"SP alignment", 0x26 << 26, ClassSPAlign},
		{"SError", 0x2F << 26, ClassSError},
		{"class with ISS noise", 0x3C<<26 | 0x1FFFFFF, ClassBRK64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Syndrome(tt.esr).Class(); got != tt.want {
				t.Errorf("Syndrome(%#x).Class() = %#x (%v), want %#x (%v)",
					tt.esr, uint8(got), got, uint8(tt.want), tt.want)
			}
		})
	}
}

func TestSyndromeFields(t *testing.T) {
	s := MakeSyndrome(ClassBRK64, 0x42)
	if s.Class() != ClassBRK64 {
		t.Errorf("Class() = %v, want BRK64", s.Class())
	}
	if s.ISS() != 0x42 {
		t.Errorf("ISS() = %#x, want 0x42", s.ISS())
	}
	if !s.IL() {
		t.Error("IL() = false, want true for a 32-bit instruction")
	}

	// ISS is capped at 25 bits.
	s = MakeSyndrome(ClassSVC64, 0xFFFFFFFF)
	if s.ISS() != 0x1FFFFFF {
		t.Errorf("ISS() = %#x, want 0x1FFFFFF", s.ISS())
	}
	if s.Class() != ClassSVC64 {
		t.Errorf("Class() = %v, want SVC64 after ISS overflow", s.Class())
	}
}

func TestClassString(t *testing.T) {
	tests := []struct {
		c    Class
		want string
	}{
		{ClassBRK64, "BRK (AArch64)"},
		{ClassDataAbortCur, "data abort, current EL"},
		{ClassSError, "SError"},
		{ClassUnknown, "unknown"},
		{Class(0x3F), "unrecognized class"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Class(%#x).String() = %q, want %q", uint8(tt.c), got, tt.want)
		}
	}
}
