package pl011

// PL011 register offsets and the flag bits the boot console touches.
// See the ARM PrimeCell UART (PL011) TRM, chapter 3.
const (
	regDR    = 0x00 // data
	regFR    = 0x18 // flags
	regIBRD  = 0x24 // integer baud rate divisor
	regFBRD  = 0x28 // fractional baud rate divisor
	regLCR   = 0x2C // line control
	regCR    = 0x30 // control
	regIMSC  = 0x38 // interrupt mask set/clear
	regICR   = 0x44 // interrupt clear
	regDMACR = 0x48 // DMA control
)

// Flag register bits.
const (
	frBusy = 1 << 3 // transmitting
	frRXFE = 1 << 4 // receive FIFO empty
	frTXFF = 1 << 5 // transmit FIFO full
)

// Line control register bits.
const (
	lcrSTP2  = 1 << 3 // two stop bits
	lcrFEN   = 1 << 4 // FIFO enable
	lcrWLEN8 = 3 << 5 // 8-bit words
)

// Control register bits.
const (
	crUARTEN = 1 << 0 // UART enable
	crTXE    = 1 << 8 // transmit enable
	crRXE    = 1 << 9 // receive enable
)

// icrAll clears every pending interrupt; bits [10:0] are the
// architected interrupt sources.
const icrAll = 0x7FF

// Divisor computes the combined baud rate divisor for a base clock and
// target rate. The PL011 divides the clock by 16 per bit and carries
// six fractional bits, so the combined value is (4*clock)/baud with
// the integer part in [21:6] and the fraction in [5:0].
func Divisor(clock, baud uint32) (ibrd, fbrd uint32) {
	div := 4 * clock / baud
	return (div >> 6) & 0xFFFF, div & 0x3F
}
