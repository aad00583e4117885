package pl011

import (
	"io"
	"sync"

	"github.com/yoshipep/aarch64-bootloader/mmio"
)

// Device models the PL011 register file. It implements mmio.Region for
// bus dispatch: transmitted bytes go to tx once the control register
// enables the transmitter, received bytes are injected with Feed and
// drained through DR. The divisor registers are inspectable so tests
// can verify the rate a driver programmed.
type Device struct {
	mu sync.Mutex
	tx io.Writer

	ibrd  uint32
	fbrd  uint32
	lcr   uint32
	cr    uint32
	imsc  uint32
	dmacr uint32
	rx    []byte
}

var _ mmio.Region = (*Device)(nil)

// NewDevice returns a PL011 model writing transmitted bytes to tx.
// A nil tx discards them.
func NewDevice(tx io.Writer) *Device {
	if tx == nil {
		tx = io.Discard
	}
	return &Device{tx: tx}
}

func (dev *Device) Read32(off uint64) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	switch off {
	case regDR:
		if len(dev.rx) == 0 {
			return 0
		}
		b := dev.rx[0]
		dev.rx = dev.rx[1:]
		return uint32(b)
	case regFR:
		// The modeled transmit path never backs up, so BUSY and
		// TXFF stay clear.
		var fr uint32
		if len(dev.rx) == 0 {
			fr |= frRXFE
		}
		return fr
	case regIBRD:
		return dev.ibrd
	case regFBRD:
		return dev.fbrd
	case regLCR:
		return dev.lcr
	case regCR:
		return dev.cr
	case regIMSC:
		return dev.imsc
	case regDMACR:
		return dev.dmacr
	}
	return 0
}

func (dev *Device) Write32(off uint64, v uint32) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	switch off {
	case regDR:
		if dev.cr&crUARTEN != 0 && dev.cr&crTXE != 0 {
			dev.tx.Write([]byte{byte(v)})
		}
	case regIBRD:
		dev.ibrd = v & 0xFFFF
	case regFBRD:
		dev.fbrd = v & 0x3F
	case regLCR:
		dev.lcr = v & 0xFF
	case regCR:
		dev.cr = v
	case regIMSC:
		dev.imsc = v & icrAll
	case regICR:
		// Write-to-clear; no pending-interrupt state is modeled.
	case regDMACR:
		dev.dmacr = v
	}
}

// Feed injects received bytes, as if the far end transmitted them.
func (dev *Device) Feed(p []byte) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.rx = append(dev.rx, p...)
}

// Baud derives the programmed rate from the divisor registers for the
// given base clock. Zero when no divisor has been programmed.
func (dev *Device) Baud(clock uint32) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	div := dev.ibrd<<6 | dev.fbrd
	if div == 0 {
		return 0
	}
	return 4 * clock / div
}

// Enabled reports whether the UART enable bit is set.
func (dev *Device) Enabled() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.cr&crUARTEN != 0
}
