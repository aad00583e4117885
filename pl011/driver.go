// Package pl011 drives the ARM PrimeCell UART (PL011), the boot console
// on virt-style AArch64 machines. Driver is the guest-side half that
// programs the device through an mmio.Region; Device models the same
// register file for the simulated machine, so the two halves can be
// tested against each other.
package pl011

import (
	"github.com/yoshipep/aarch64-bootloader/mmio"
)

// Driver programs and feeds a PL011 through its register window.
type Driver struct {
	r mmio.Region
}

// New returns a driver for the PL011 behind r.
func New(r mmio.Region) *Driver { return &Driver{r: r} }

// Configure programs the UART for 8N1 with FIFOs at the given rate.
// The device must be disabled and idle before the divisor or line
// format may change, so the sequence is ordered:
//
//  1. disable the UART
//  2. drain any transmission in flight
//  3. flush the FIFOs by dropping FEN
//  4. mask, then clear, all interrupts
//  5. program the divisor (IBRD/FBRD)
//  6. program the line format; this write latches the divisor
//  7. disable DMA
//  8. enable the UART with both directions
func (d *Driver) Configure(clock, baud uint32) {
	d.r.Write32(regCR, 0)
	d.drain()

	mmio.ClearBits32(d.r, regLCR, lcrFEN)

	d.r.Write32(regIMSC, 0)
	d.r.Write32(regICR, icrAll)

	ibrd, fbrd := Divisor(clock, baud)
	d.r.Write32(regIBRD, ibrd)
	d.r.Write32(regFBRD, fbrd)

	d.r.Write32(regLCR, lcrWLEN8|lcrFEN)

	d.r.Write32(regDMACR, 0)

	d.r.Write32(regCR, crUARTEN|crTXE|crRXE)
}

// drain blocks until the UART finishes transmitting.
func (d *Driver) drain() {
	for d.r.Read32(regFR)&frBusy != 0 {
	}
}

// WriteByte transmits one byte, pacing on the busy flag.
func (d *Driver) WriteByte(b byte) {
	d.drain()
	d.r.Write32(regDR, uint32(b))
}

// Write implements io.Writer with the console newline convention:
// LF is transmitted as CRLF.
func (d *Driver) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			d.WriteByte('\r')
		}
		d.WriteByte(b)
	}
	return len(p), nil
}

// ReadByte returns one received byte, or false when the receive FIFO
// is empty.
func (d *Driver) ReadByte() (byte, bool) {
	if d.r.Read32(regFR)&frRXFE != 0 {
		return 0, false
	}
	return byte(d.r.Read32(regDR)), true
}
