// Package haptic maps note events onto the rumble parameters the
// controllers can actually render.
package haptic

import (
	"math"

	"github.com/mbaxter/joybeat/util"
)

// The HD rumble actuator responds across two bands. Values in Hz.
const (
	LowBandMin  = 40.87
	LowBandMax  = 626.28
	HighBandMin = 81.75
	HighBandMax = 1252.0
)

const (
	// referenceFreq is A5. Pitch 69 (A4, 440 Hz) maps to it, putting the
	// whole mapping an octave up so melodies land in the actuator's
	// strong range.
	referenceFreq = 880.0
	referenceNote = 57
)

// NoteFrequency converts a MIDI pitch to its equal-temperament
// frequency, transposed one octave up. Monotonic in pitch.
func NoteFrequency(pitch int) float64 {
	return referenceFreq * math.Pow(2, float64(pitch-referenceNote-12)/12.0)
}

// Amplitude scales velocity linearly from [0,127] to [0,1] and clamps
// the result. Inputs outside the nominal range clamp instead of erroring.
func Amplitude(velocity int) float64 {
	a := float64(velocity) / 127.0
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Map converts one note into a dual-band frequency pair plus amplitude.
// The high band carries the note itself; the low band runs an octave
// below it. Both are clamped into their band's supported range.
func Map(pitch int, velocity int) (freqLow, freqHigh, amplitude float64) {
	f := NoteFrequency(pitch)
	freqHigh = util.Clamp(f, HighBandMin, HighBandMax)
	freqLow = util.Clamp(f/2, LowBandMin, LowBandMax)
	return freqLow, freqHigh, Amplitude(velocity)
}
