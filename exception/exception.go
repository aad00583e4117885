// Package exception captures the state an AArch64 exception entry
// saves and renders it in the classic bare-metal crash format: a
// handler banner, the faulting instruction window, and a full register
// dump.
package exception

import (
	"fmt"
	"io"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Kind identifies the vector an exception arrived through. The Bad
// variants are the vectors that must never fire during boot (wrong
// stack or wrong register width); taking one means the vector table
// itself is suspect.
type Kind uint8

const (
	Sync Kind = iota
	IRQ
	FIQ
	SError
	BadSync
	BadIRQ
	BadFIQ
	BadSError
)

func (k Kind) base() string {
	switch k {
	case Sync, BadSync:
		return "Synchronous Exception"
	case IRQ, BadIRQ:
		return "IRQ"
	case FIQ, BadFIQ:
		return "FIQ"
	case SError, BadSError:
		return "SError"
	}
	return "Unknown"
}

// Bad reports whether the exception arrived through a bad-mode vector.
func (k Kind) Bad() bool { return k >= BadSync && k <= BadSError }

func (k Kind) String() string {
	if k.Bad() {
		return "Bad " + k.base()
	}
	return k.base()
}

// Banner returns the handler banner the dump starts with.
func (k Kind) Banner() string {
	if k.Bad() {
		return "Bad mode in " + k.base() + " handler"
	}
	return k.base() + " handler"
}

// Regs is the register file an exception entry saves: the general
// purpose registers in order, then the syndrome, return address, and
// saved program status.
type Regs struct {
	X    [31]uint64 `json:"x"`
	ESR  uint64     `json:"esr"`
	ELR  uint64     `json:"elr"`
	SPSR uint64     `json:"spsr"`
}

// Syndrome decodes the saved ESR.
func (r *Regs) Syndrome() arm64.Syndrome { return arm64.Syndrome(r.ESR) }

// State is one taken exception.
type State struct {
	Kind Kind `json:"kind"`
	Regs Regs `json:"regs"`
}

// Dump writes the banner and register state to w.
func (s *State) Dump(w io.Writer) {
	fmt.Fprintln(w, s.Kind.Banner())
	s.dumpRegs(w)
}

// DumpWithCode additionally reads the faulting instruction word at ELR
// from mem and prints its bytes in memory order, the byte ELR points
// into bracketed.
func (s *State) DumpWithCode(w io.Writer, mem io.ReaderAt) {
	fmt.Fprintln(w, s.Kind.Banner())
	s.dumpInstr(w, mem)
	s.dumpRegs(w)
}

func (s *State) dumpInstr(w io.Writer, mem io.ReaderAt) {
	var word [4]byte
	if _, err := mem.ReadAt(word[:], int64(s.Regs.ELR&^3)); err != nil {
		fmt.Fprintf(w, "Faulting instruction at 0x%016x: <unreadable>\n", s.Regs.ELR)
		return
	}
	fmt.Fprintf(w, "Faulting instruction at 0x%016x:", s.Regs.ELR)
	for i, b := range word {
		if uint64(i) == s.Regs.ELR&3 {
			fmt.Fprintf(w, " [%02x]", b)
		} else {
			fmt.Fprintf(w, " %02x", b)
		}
	}
	fmt.Fprintln(w)
}

func (s *State) dumpRegs(w io.Writer) {
	fmt.Fprintln(w, "\nRegisters:")
	for i, v := range s.Regs.X {
		fmt.Fprintf(w, "%-3s: 0x%016x\n", fmt.Sprintf("x%d", i), v)
	}
	fmt.Fprintf(w, "%-3s: 0x%016x (%v)\n", "esr", s.Regs.ESR, s.Regs.Syndrome().Class())
	fmt.Fprintf(w, "%-3s: 0x%016x\n", "elr", s.Regs.ELR)
	fmt.Fprintf(w, "%-3s: 0x%016x\n", "spsr", s.Regs.SPSR)
	fmt.Fprintf(w, "%-3s: 0x%016x\n", "xzr", uint64(0))
}
