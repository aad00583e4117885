package exception

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

func TestKindBanner(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{kind: Sync, want: "Synchronous Exception handler"},
		{kind: IRQ, want: "IRQ handler"},
		{kind: FIQ, want: "FIQ handler"},
		{kind: SError, want: "SError handler"},
		{kind: BadSync, want: "Bad mode in Synchronous Exception handler"},
		{kind: BadIRQ, want: "Bad mode in IRQ handler"},
		{kind: BadFIQ, want: "Bad mode in FIQ handler"},
		{kind: BadSError, want: "Bad mode in SError handler"},
	}

	for _, tt := range tests {
		if got := tt.kind.Banner(); got != tt.want {
			t.Errorf("Banner(%d) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := Sync.String(); got != "Synchronous Exception" {
		t.Errorf("Sync.String() = %q", got)
	}
	if got := BadFIQ.String(); got != "Bad FIQ" {
		t.Errorf("BadFIQ.String() = %q", got)
	}
	if Sync.Bad() || !BadSError.Bad() {
		t.Error("Bad() misclassifies vectors")
	}
}

func TestDump(t *testing.T) {
	s := &State{
		Kind: Sync,
		Regs: Regs{
			ESR:  uint64(arm64.MakeSyndrome(arm64.ClassDataAbortLow, 0x45)),
			ELR:  0x4008_0010,
			SPSR: 0x3C5,
		},
	}
	s.Regs.X[0] = 0x42
	s.Regs.X[30] = 0x4008_0000

	var buf bytes.Buffer
	s.Dump(&buf)

	lines := strings.Split(buf.String(), "\n")
	if len(lines) != 39 {
		t.Fatalf("Dump produced %d lines, want 39:\n%s", len(lines), buf.String())
	}

	checks := []struct {
		line int
		want string
	}{
		{line: 0, want: "Synchronous Exception handler"},
		{line: 1, want: ""},
		{line: 2, want: "Registers:"},
		{line: 3, want: "x0 : 0x0000000000000042"},
		{line: 13, want: "x10: 0x0000000000000000"},
		{line: 33, want: "x30: 0x0000000040080000"},
		{line: 34, want: "esr: 0x0000000092000045 (data abort, lower EL)"},
		{line: 35, want: "elr: 0x0000000040080010"},
		{line: 36, want: "spsr: 0x00000000000003c5"},
		{line: 37, want: "xzr: 0x0000000000000000"},
	}
	for _, c := range checks {
		if lines[c.line] != c.want {
			t.Errorf("line %d = %q, want %q", c.line, lines[c.line], c.want)
		}
	}
}

func TestDumpWithCode(t *testing.T) {
	// BRK #0 at offset 8, little-endian.
	code := make([]byte, 16)
	copy(code[8:], []byte{0x00, 0x00, 0x20, 0xD4})
	mem := bytes.NewReader(code)

	s := &State{
		Kind: BadSync,
		Regs: Regs{
			ESR: uint64(arm64.MakeSyndrome(arm64.ClassBRK64, 0)),
			ELR: 0xA, // mid-word; the read rounds down to 0x8
		},
	}

	var buf bytes.Buffer
	s.DumpWithCode(&buf, mem)

	lines := strings.Split(buf.String(), "\n")
	if lines[0] != "Bad mode in Synchronous Exception handler" {
		t.Errorf("banner = %q", lines[0])
	}
	want := "Faulting instruction at 0x000000000000000a: 00 00 [20] d4"
	if lines[1] != want {
		t.Errorf("instruction line = %q, want %q", lines[1], want)
	}
}

func TestDumpWithCodeUnreadable(t *testing.T) {
	mem := bytes.NewReader(nil)
	s := &State{Kind: Sync, Regs: Regs{ELR: 0x4000_0000}}

	var buf bytes.Buffer
	s.DumpWithCode(&buf, mem)

	if !strings.Contains(buf.String(), "<unreadable>") {
		t.Errorf("Dump of unmapped ELR missing <unreadable>:\n%s", buf.String())
	}
}
