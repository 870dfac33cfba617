package cansim

// Level is one of the two electrical states of the simulated bus.
// The numeric values double as wire bit values: a recessive bit is a
// logical 1, a dominant bit a logical 0.
type Level uint8

const (
	Dominant  Level = 0 // logical 0, bus LOW
	Recessive Level = 1 // logical 1, bus HIGH
)

// String returns the human label used by the interactive surface.
func (l Level) String() string {
	if l == Recessive {
		return "HIGH (recessive)"
	}
	return "LOW (dominant)"
}

// Field widths of the simplified wire layout. The trailer widths model
// a generic CRC/ACK/EOF pattern, not a bit-stuffed CRC-15; they are
// fixed protocol parameters of the simulation.
const (
	stdIDBits = 11
	extIDBits = 29
	dlcBits   = 4
	crcBits   = 15
	ackBits   = 3
	eofBits   = 7
)

// WireBits encodes the frame into its ordered sequence of bus levels:
// start-of-frame, identifier (MSB first), format-control bits, DLC,
// payload, CRC placeholder, CRC delimiter/ACK slot/ACK delimiter, and
// end-of-frame.
//
// WireBits is pure and has no failure path; it trusts the width
// invariants of a validated frame. An out-of-range identifier injected
// past Validate is silently truncated to the field width.
func (f Frame) WireBits() []Level {
	n := 1 + stdIDBits + 3 + dlcBits + 8*int(f.Len) + crcBits + ackBits + eofBits
	if f.Extended {
		n = 1 + extIDBits + 2 + dlcBits + 8*int(f.Len) + crcBits + ackBits + eofBits
	}
	bits := make([]Level, 0, n)

	bits = append(bits, Dominant) // SOF

	if f.Extended {
		bits = appendBits(bits, f.ID, extIDBits)
		bits = append(bits, Recessive, Recessive) // IDE, r1
	} else {
		bits = appendBits(bits, f.ID, stdIDBits)
		bits = append(bits, Dominant, Dominant, Dominant) // RTR, IDE, r0
	}

	bits = appendBits(bits, uint32(f.Len), dlcBits)

	for _, b := range f.Data[:f.Len] {
		bits = appendBits(bits, uint32(b), 8)
	}

	for i := 0; i < crcBits+ackBits+eofBits; i++ {
		bits = append(bits, Recessive)
	}
	return bits
}

// appendBits appends the low width bits of v, most significant first.
func appendBits(bits []Level, v uint32, width int) []Level {
	for shift := width - 1; shift >= 0; shift-- {
		bits = append(bits, Level((v>>uint(shift))&1))
	}
	return bits
}
