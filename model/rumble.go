package model

import "time"

// RumbleCommand is one scheduled actuator instruction. At is relative to
// the playback clock origin. Amplitude is clamped into [0,1] at
// construction and never re-checked downstream.
type RumbleCommand struct {
	At       time.Duration
	FreqLow  float64
	FreqHigh float64
	// Amplitude 0 means silence; a command with Amplitude 0 acts as the
	// deactivation bracketing a preceding note.
	Amplitude float64
}

// NewRumbleCommand clamps amplitude into [0,1] regardless of what the
// caller computed upstream.
func NewRumbleCommand(at time.Duration, freqLow, freqHigh, amplitude float64) RumbleCommand {
	if amplitude < 0 {
		amplitude = 0
	} else if amplitude > 1 {
		amplitude = 1
	}
	return RumbleCommand{At: at, FreqLow: freqLow, FreqHigh: freqHigh, Amplitude: amplitude}
}

// Silent reports whether the command carries no vibration.
func (c RumbleCommand) Silent() bool {
	return c.Amplitude == 0
}

// ChannelStream is the ordered command sequence for one haptic channel.
// Commands are non-decreasing in At.
type ChannelStream []RumbleCommand

// Duration returns the scheduled time of the last command, or 0 for an
// empty stream.
func (s ChannelStream) Duration() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].At
}

// NumChannels is the number of independently addressable haptic
// channels: one per hand.
const NumChannels = 2
