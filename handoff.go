package bootloader

import (
	"fmt"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Handoff records the machine state a core handed to the kernel: the
// postconditions of the reset-to-kernel sequence, one struct per core.
type Handoff struct {
	Core     int      `json:"core"`
	EntryEL  arm64.EL `json:"entry_el"`
	EL       arm64.EL `json:"el"`
	SP       uint64   `json:"sp"`
	SPSR     uint64   `json:"spsr,omitempty"` // zero when no drop occurred
	SCTLR    uint64   `json:"sctlr"`
	Entry    uint64   `json:"entry"`
	BSSBytes uint64   `json:"bss_bytes"`
}

// Dropped reports whether the core performed a privilege drop on the
// way to the kernel.
func (h *Handoff) Dropped() bool { return h.SPSR != 0 }

func (h *Handoff) String() string {
	return fmt.Sprintf("core %d: %v->%v sp=%#x sctlr=%#x entry=%#x",
		h.Core, h.EntryEL, h.EL, h.SP, h.SCTLR, h.Entry)
}
