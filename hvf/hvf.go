// Package hvf runs the reset-to-kernel handoff against real silicon
// through the Apple Hypervisor framework. A VM owns the guest-physical
// address space; each vCPU is wrapped in a Core satisfying the same
// core contract the modeled machine does, so one boot sequence drives
// both backends.
//
// Framework guests hold EL1 and EL0 only. A Core therefore always
// reports an EL1 entry, and the EL2/EL3 configuration registers are
// unreachable; touching them fails with ErrInvalidRegister.
//
// Only darwin/arm64 hosts can execute anything. Elsewhere the package
// compiles to stubs whose operations fail.
package hvf

import (
	"strconv"
	"sync"
	"unsafe"

	bootloader "github.com/yoshipep/aarch64-bootloader"
)

// MemPerm is a guest mapping permission mask.
type MemPerm uint

const (
	MemRead  MemPerm = 1 << 0
	MemWrite MemPerm = 1 << 1
	MemExec  MemPerm = 1 << 2
)

// Reg names an ARM64 general register on a vCPU.
type Reg int

const (
	RegX0 Reg = iota
	RegX1
	RegX2
	RegX3
	RegX4
	RegX5
	RegX6
	RegX7
	RegX8
	RegX9
	RegX10
	RegX11
	RegX12
	RegX13
	RegX14
	RegX15
	RegX16
	RegX17
	RegX18
	RegX19
	RegX20
	RegX21
	RegX22
	RegX23
	RegX24
	RegX25
	RegX26
	RegX27
	RegX28
	RegFP // X29
	RegLR // X30
	RegSP // SP_EL0
	RegPC
	RegCPSR
)

func (r Reg) String() string {
	if r >= RegX0 && r <= RegX28 {
		return "X" + strconv.Itoa(int(r))
	}
	switch r {
	case RegFP:
		return "FP"
	case RegLR:
		return "LR"
	case RegSP:
		return "SP"
	case RegPC:
		return "PC"
	case RegCPSR:
		return "CPSR"
	default:
		return "Reg?"
	}
}

// ExitReason categorizes why a vCPU returned to the host.
type ExitReason int

const (
	ExitUnknown ExitReason = iota
	ExitException
	ExitTimer
	ExitCanceled
)

func (r ExitReason) String() string {
	switch r {
	case ExitUnknown:
		return "unknown"
	case ExitException:
		return "exception"
	case ExitTimer:
		return "vtimer"
	case ExitCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ExitInfo describes the most recent vCPU exit. For exception exits
// ESR carries the syndrome the framework reported and FAR the
// faulting address when the syndrome has one.
type ExitInfo struct {
	Reason ExitReason `json:"reason"`
	ESR    uint64     `json:"esr"`
	FAR    uint64     `json:"far"`
}

// VM is the process's hypervisor virtual machine. The framework
// allows at most one per process; create the VM, map guest memory,
// then create cores.
type VM struct {
	closed  bool
	closeMu sync.Mutex // guards Close against the finalizer
}

// Closed reports whether Close has completed.
func (vm *VM) Closed() bool {
	if vm == nil {
		return true
	}
	vm.closeMu.Lock()
	defer vm.closeMu.Unlock()
	return vm.closed
}

// Core is one vCPU presented through the handoff core contract.
type Core struct {
	id   int
	vcpu uint64
	exit unsafe.Pointer // hv_vcpu_exit_t owned by the framework

	closed  bool
	closeMu sync.Mutex

	spSet    bool
	dropped  bool
	entered  bool
	lastExit ExitInfo
}

var _ bootloader.Core = (*Core)(nil)

// ID is the core index given at creation. Core 0 owns the BSS clear.
func (c *Core) ID() int { return c.id }

// Entered reports whether the core has handed off to the kernel.
func (c *Core) Entered() bool { return c.entered }

// LastExit returns the most recent vCPU exit recorded by Enter or Run.
func (c *Core) LastExit() ExitInfo { return c.lastExit }
