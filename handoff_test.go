package bootloader

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

func TestHandoffString(t *testing.T) {
	h := &Handoff{
		Core:    0,
		EntryEL: arm64.EL2,
		EL:      arm64.EL1,
		SP:      0x4000_4000,
		SPSR:    arm64.SPSRKernel,
		SCTLR:   arm64.SCTLRReset,
		Entry:   0x4008_0000,
	}

	got := h.String()
	want := "core 0: EL2->EL1 sp=0x40004000 sctlr=0x0 entry=0x40080000"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !h.Dropped() {
		t.Error("Dropped() = false for an EL2 entry, want true")
	}
}

func TestHandoffJSON(t *testing.T) {
	tests := []struct {
		name     string
		handoff  Handoff
		wantSPSR bool
	}{
		{
			name: "dropped from EL2",
			handoff: Handoff{
				Core:    1,
				EntryEL: arm64.EL2,
				EL:      arm64.EL1,
				SP:      0x4000_8000,
				SPSR:    arm64.SPSRKernel,
				Entry:   0x4008_0000,
			},
			wantSPSR: true,
		},
		{
			name: "native EL1 entry",
			handoff: Handoff{
				Core:    0,
				EntryEL: arm64.EL1,
				EL:      arm64.EL1,
				SP:      0x4000_4000,
				Entry:   0x4008_0000,
			},
			wantSPSR: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(&tt.handoff)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			if got := strings.Contains(string(data), `"spsr"`); got != tt.wantSPSR {
				t.Errorf("spsr present = %v, want %v (json: %s)", got, tt.wantSPSR, data)
			}

			var back Handoff
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if back != tt.handoff {
				t.Errorf("round trip = %+v, want %+v", back, tt.handoff)
			}
		})
	}
}
