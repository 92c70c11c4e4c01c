package joycon

import "math"

// Output report layout. A rumble report is 49 bytes: command byte,
// 4-bit rolling packet counter, then 4 bytes of rumble data per side.
const (
	reportLen      = 49
	cmdRumble      = 0x10
	cmdSubcommand  = 0x01
	subcommandSlot = 10

	leftDataOffset  = 2
	rightDataOffset = 6
)

// Subcommands sent through 0x01 framing.
const (
	subSetInputMode    = 0x03
	subEnableVibration = 0x48
)

const (
	// MaxFrequency is the top of the encodable rumble range in Hz.
	MaxFrequency = 1252.0
)

// neutralRumble is the four-byte "no vibration" state for one side.
var neutralRumble = [4]byte{0x00, 0x01, 0x40, 0x40}

// encodeFrequency maps Hz onto the device's logarithmic frequency code.
func encodeFrequency(freq float64) byte {
	if freq <= 0 {
		return 0
	}
	if freq > MaxFrequency {
		freq = MaxFrequency
	}
	v := math.Round(math.Log2(freq/10.0) * 32.0)
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return byte(v)
}

// encodeAmplitude maps [0,1] onto the device's piecewise-log amplitude
// code. The split at 0.23 follows the reverse-engineered rumble tables.
func encodeAmplitude(amp float64) byte {
	if amp <= 0 {
		return 0
	}
	if amp > 1 {
		amp = 1
	}
	var v float64
	if amp > 0.23 {
		v = math.Round(math.Log2(amp*8.7) * 32.0)
	} else {
		v = math.Round(math.Log2(amp*17.0) * 16.0)
	}
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return byte(v)
}

// packRumble writes one side's four rumble bytes at the given offset:
// high-band frequency, high-band amplitude, low-band frequency,
// low-band amplitude.
func packRumble(buf []byte, offset int, freqLow, freqHigh, amplitude float64) {
	encHigh := encodeFrequency(freqHigh)
	encLow := encodeFrequency(freqLow)

	var hf uint16
	if encHigh > 0x60 {
		hf = uint16(encHigh-0x60) * 4
	}
	var lf byte
	if encLow > 0x40 {
		lf = encLow - 0x40
	}

	encAmp := encodeAmplitude(amplitude)
	hfAmp := satMul2(encAmp)
	lfAmp := encAmp/2 + 0x40

	buf[offset] = byte(hf & 0xff)
	buf[offset+1] = hfAmp
	buf[offset+2] = lf
	buf[offset+3] = lfAmp
}

// packNeutral writes the no-vibration state at the given offset.
func packNeutral(buf []byte, offset int) {
	copy(buf[offset:offset+4], neutralRumble[:])
}

func satMul2(b byte) byte {
	if b > 0x7f {
		return 0xff
	}
	return b * 2
}
