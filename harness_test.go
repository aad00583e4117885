package bootloader_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// bootsimPath locates a built bootsim binary: next to the source tree
// first, then PATH. The harness drives the CLI end to end, so it skips
// when no binary is around.
func bootsimPath(t *testing.T) string {
	t.Helper()

	for _, p := range []string{"./cmd/bootsim/bootsim", "./bootsim"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p, err := exec.LookPath("bootsim"); err == nil {
		return p
	}
	t.Skip("bootsim binary not found, build cmd/bootsim first")
	return ""
}

// runResult mirrors the run command's JSON output, with the handoffs
// decoded into the library's own type.
type runResult struct {
	Handoffs []*bootloader.Handoff `json:"handoffs"`
	UART     string                `json:"uart"`
	Error    string                `json:"error"`
}

// kernelImage writes a minimal AArch64 kernel image to a temp file:
// MOVZ+BRK text at the virt load address with a page-bounded BSS tail.
func kernelImage(t *testing.T) string {
	t.Helper()

	text := []byte{0x40, 0x08, 0x80, 0xD2, 0x00, 0x00, 0x20, 0xD4}

	var buf bytes.Buffer
	le := binary.LittleEndian
	w16 := func(v uint16) { binary.Write(&buf, le, v) }
	w32 := func(v uint32) { binary.Write(&buf, le, v) }
	w64 := func(v uint64) { binary.Write(&buf, le, v) }

	ident := [16]byte{0x7F, 'E', 'L', 'F',
		byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), 1, byte(elf.ELFOSABI_NONE)}
	buf.Write(ident[:])

	w16(uint16(elf.ET_EXEC))
	w16(uint16(elf.EM_AARCH64))
	w32(1) // EV_CURRENT
	w64(0x4008_0000)
	w64(64) // phoff
	w64(0)  // no section headers
	w32(0)  // flags
	w16(64) // ehsize
	w16(56) // phentsize
	w16(1)  // phnum
	w16(0)  // shentsize
	w16(0)  // shnum
	w16(0)  // shstrndx

	w32(uint32(elf.PT_LOAD))
	w32(uint32(elf.PF_R | elf.PF_X))
	w64(120) // payload right after the program header
	w64(0x4008_0000)
	w64(0x4008_0000)
	w64(uint64(len(text)))
	w64(0x3000) // memsz, leaves a 0x2000-byte BSS after rounding
	w64(0x1000)
	buf.Write(text)

	path := filepath.Join(t.TempDir(), "kernel.elf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// runBootsim execs the CLI and decodes its JSON report.
func runBootsim(t *testing.T, args ...string) *runResult {
	t.Helper()

	cmd := exec.Command(bootsimPath(t), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("starting bootsim: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("bootsim %v: %v\n%s", args, err, stderr.String())
		}
	case <-time.After(10 * time.Second):
		cmd.Process.Kill()
		t.Fatalf("bootsim %v timed out", args)
	}

	var result runResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding run output: %v\n%s", err, stdout.String())
	}
	if result.Error != "" {
		t.Fatalf("bootsim reported: %s", result.Error)
	}
	return &result
}

func TestBootsimRun(t *testing.T) {
	image := kernelImage(t)

	t.Run("EL3 entry", func(t *testing.T) {
		res := runBootsim(t, "run", "--json", "--cores", "2", "--el", "el3", image)

		if len(res.Handoffs) != 2 {
			t.Fatalf("got %d handoffs, want 2", len(res.Handoffs))
		}
		for i, h := range res.Handoffs {
			if h.Core != i {
				t.Errorf("handoff %d is for core %d", i, h.Core)
			}
			if h.EntryEL != arm64.EL3 || h.EL != arm64.EL1 {
				t.Errorf("core %d: %v -> %v, want EL3 -> EL1", i, h.EntryEL, h.EL)
			}
			if h.SPSR != arm64.SPSRKernel {
				t.Errorf("core %d: SPSR = %#x, want %#x", i, h.SPSR, uint64(arm64.SPSRKernel))
			}
			if h.SCTLR != arm64.SCTLRReset {
				t.Errorf("core %d: SCTLR = %#x, want %#x", i, h.SCTLR, arm64.SCTLRReset)
			}
			if h.Entry != 0x4008_0000 {
				t.Errorf("core %d: entry = %#x, want 0x40080000", i, h.Entry)
			}
			want := uint64(0x4000_0000 + (i+1)*arm64.BootStackSize)
			if h.SP != want {
				t.Errorf("core %d: SP = %#x, want %#x", i, h.SP, want)
			}
		}
		if got := res.Handoffs[0].BSSBytes; got != 0x2000 {
			t.Errorf("core 0 cleared %#x BSS bytes, want 0x2000", got)
		}
		if got := res.Handoffs[1].BSSBytes; got != 0 {
			t.Errorf("core 1 cleared %#x BSS bytes, want 0", got)
		}
		if !strings.Contains(res.UART, "entered kernel") {
			t.Errorf("UART capture %q missing the boot banner", res.UART)
		}
	})

	t.Run("EL1 entry skips the drop", func(t *testing.T) {
		res := runBootsim(t, "run", "--json", "--el", "el1", image)

		if len(res.Handoffs) != 1 {
			t.Fatalf("got %d handoffs, want 1", len(res.Handoffs))
		}
		h := res.Handoffs[0]
		if h.EntryEL != arm64.EL1 || h.EL != arm64.EL1 {
			t.Errorf("core 0: %v -> %v, want EL1 -> EL1", h.EntryEL, h.EL)
		}
		if h.Dropped() {
			t.Errorf("core 0 reports a privilege drop, SPSR = %#x", h.SPSR)
		}
	})
}
