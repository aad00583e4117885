// Package machine models a minimal virt-style AArch64 machine: cores
// precise enough to run the reset-to-kernel handoff against, guest RAM
// behind the boot-facing memory interface, and a PL011 console on the
// MMIO bus. It is the reference backend; the hvf package provides the
// hardware-accelerated one.
package machine

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
	"github.com/yoshipep/aarch64-bootloader/pl011"
)

// Memory map and defaults, following the QEMU virt board.
const (
	DefaultRAMBase = 0x4000_0000
	DefaultRAMSize = 64 << 20
	UARTBase       = 0x0900_0000
	UARTSize       = 0x1000
	UARTClock      = 24_000_000
)

// Config describes the machine to build. Zero values select the
// defaults; an EntryEL of EL0 means unset and selects EL3, the highest
// reset level. UART receives whatever the guest transmits on the
// console; nil discards it.
type Config struct {
	Cores   int
	RAMSize uint64
	RAMBase uint64
	EntryEL arm64.EL
	UART    io.Writer
}

// Machine is one modeled machine instance.
type Machine struct {
	cfg   Config
	cores []*CPU
	ram   *RAM
	bus   *Bus
	uart  *pl011.Device

	closed  bool
	closeMu sync.Mutex // protect against concurrent Close() and finalizer
}

// New builds a machine from cfg, allocating guest RAM and mapping the
// console. Callers own the result and should Close it.
func New(cfg Config) (*Machine, error) {
	if cfg.Cores <= 0 {
		cfg.Cores = 1
	}
	if cfg.RAMSize == 0 {
		cfg.RAMSize = DefaultRAMSize
	}
	if cfg.RAMBase == 0 {
		cfg.RAMBase = DefaultRAMBase
	}
	if cfg.EntryEL == arm64.EL0 {
		cfg.EntryEL = arm64.EL3
	}
	if !cfg.EntryEL.Valid() {
		return nil, fmt.Errorf("machine: entry level %d unarchitected", cfg.EntryEL)
	}
	if cfg.RAMSize%arm64.KernelAlign != 0 {
		return nil, fmt.Errorf("machine: ram size %#x not a page multiple", cfg.RAMSize)
	}

	ram, err := newRAM(cfg.RAMBase, cfg.RAMSize)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:  cfg,
		ram:  ram,
		bus:  NewBus(),
		uart: pl011.NewDevice(cfg.UART),
	}
	if err := m.bus.Map(UARTBase, UARTSize, m.uart); err != nil {
		ram.free()
		return nil, err
	}
	for i := 0; i < cfg.Cores; i++ {
		m.cores = append(m.cores, newCPU(i, cfg.EntryEL))
	}

	// Safety net in case Close() is not called.
	runtime.SetFinalizer(m, (*Machine).finalize)

	return m, nil
}

// Core returns core i, nil when out of range.
func (m *Machine) Core(i int) *CPU {
	if i < 0 || i >= len(m.cores) {
		return nil
	}
	return m.cores[i]
}

// Cores returns every core behind the boot-facing interface, in index
// order.
func (m *Machine) Cores() []bootloader.Core {
	cores := make([]bootloader.Core, len(m.cores))
	for i, c := range m.cores {
		cores[i] = c
	}
	return cores
}

// Mem returns guest RAM behind the boot-facing memory interface.
func (m *Machine) Mem() bootloader.Memory { return m.ram }

// RAM returns the concrete guest memory.
func (m *Machine) RAM() *RAM { return m.ram }

// Bus returns the MMIO bus.
func (m *Machine) Bus() *Bus { return m.bus }

// UART returns the console device.
func (m *Machine) UART() *pl011.Device { return m.uart }

// Config returns the configuration after defaulting.
func (m *Machine) Config() Config { return m.cfg }

// Close releases the guest memory. Idempotent.
func (m *Machine) Close() error {
	if m == nil {
		return nil
	}

	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	runtime.SetFinalizer(m, nil)
	return m.ram.free()
}

// finalize is called by the garbage collector as a safety net.
func (m *Machine) finalize() {
	if m == nil {
		return
	}
	// Non-blocking lock to prevent deadlock in finalizers.
	if m.closeMu.TryLock() {
		defer m.closeMu.Unlock()
		if !m.closed {
			m.closed = true
			m.ram.free()
		}
	}
}
