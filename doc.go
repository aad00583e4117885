// Package bootloader implements the AArch64 reset-to-kernel handoff:
// the register programming a boot core performs between coming out of
// reset at EL1, EL2 or EL3 and branching to a kernel entry point at
// EL1.
//
// The sequence is fixed and strictly ordered: detect the entry
// exception level, configure the level being left (HCR_EL2 or
// SCR_EL3), construct a saved program status word and drop to EL1,
// establish the boot stack, install a clean SCTLR_EL1, zero BSS on
// core 0, and enter the kernel. Boot runs it on one core; BootAll
// runs every core through it, core 0 first since it owns the BSS
// clear, each with its own stack.
//
// The package is backend-agnostic: anything satisfying the Core and
// Memory interfaces can be booted. Two backends ship with it, the
// machine package (a modeled virt-style board, portable) and the hvf
// package (Apple Hypervisor.framework guests, darwin/arm64).
//
// # Basic Usage
//
// Boot a kernel image on a modeled machine:
//
//	m, err := machine.New(machine.Config{Cores: 4, UART: os.Stdout})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close()
//
//	f, err := os.Open("kernel.elf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer f.Close()
//
//	img, err := loader.Load(m.RAM(), f)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	bssStart, bssEnd := img.BSS()
//	handoffs, err := bootloader.BootAll(m.Cores(), m.RAM(), bootloader.Layout{
//		StackBase: machine.DefaultRAMBase,
//		Entry:     img.Entry,
//		BSSStart:  bssStart,
//		BSSEnd:    bssEnd,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, h := range handoffs {
//		fmt.Println(h)
//	}
//
// Each Handoff records the state a core handed to the kernel: the
// entry level, the final level, the stack pointer, the SPSR used for
// the drop (zero when the core entered at EL1 and no drop occurred)
// and the installed SCTLR_EL1.
//
// # Layout
//
// Layout fixes the addresses the sequence consumes. Core n's stack
// grows down from StackBase + (n+1)*BootStackSize, so the stack region
// for N cores spans N*BootStackSize bytes from StackBase. The kernel
// entry must be instruction-aligned and inside memory; BSS bounds must
// be KernelAlign multiples and must not intersect the stack region.
// Validate rejects layouts that break any of this before a single
// register is touched.
//
// # Error Handling
//
// Sequence failures wrap the failing step's name around the cause and,
// where a named condition exists, a sentinel: ErrIllegalReturn,
// ErrStackAlign, ErrEntryAlign, ErrBadEntryEL, ErrKernelEntered and
// friends all satisfy errors.Is. Error detail is environment-gated;
// see errors.go.
//
// # Backends
//
// The machine backend models exactly the architectural state the
// sequence touches and is the portable reference; its cores start at a
// configurable reset level so EL3 and EL2 entries can be exercised
// anywhere. The hvf backend runs the same sequence against a real
// Hypervisor.framework guest, which resets at EL1, and needs the
// com.apple.security.hypervisor entitlement. Code that holds a Core
// does not care which one it got.
package bootloader
