package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTempoMapInsertsDefaultAtTickZero(t *testing.T) {
	tm := NewTempoMap(nil, 480)

	assert := assert.New(t)
	assert.Len(tm.Changes, 1)
	assert.Equal(uint32(0), tm.Changes[0].Tick)
	assert.Equal(uint32(DefaultMicrosPerQuarter), tm.Changes[0].MicrosPerQuarter)
}

func TestTempoMapKeepsExistingTickZero(t *testing.T) {
	tm := NewTempoMap([]TempoChange{{Tick: 0, MicrosPerQuarter: 250000}}, 480)

	assert := assert.New(t)
	assert.Len(tm.Changes, 1)
	assert.Equal(uint32(250000), tm.Changes[0].MicrosPerQuarter)
}

func TestQuarterNoteAtDefaultTempoIsHalfSecond(t *testing.T) {
	tm := NewTempoMap(nil, 480)
	assert.Equal(t, 500*time.Millisecond, tm.DurationBetween(0, 480))
}

func TestDurationAccumulatesAcrossTempoChange(t *testing.T) {
	// 480 ticks at 500000 then 480 ticks at 250000
	tm := NewTempoMap([]TempoChange{
		{Tick: 0, MicrosPerQuarter: 500000},
		{Tick: 480, MicrosPerQuarter: 250000},
	}, 480)

	assert := assert.New(t)
	assert.Equal(750*time.Millisecond, tm.DurationBetween(0, 960))
	assert.Equal(250*time.Millisecond, tm.DurationBetween(480, 960))
	assert.Equal(500*time.Millisecond, tm.TimeAt(480))
}

func TestDurationMidSegment(t *testing.T) {
	tm := NewTempoMap([]TempoChange{
		{Tick: 0, MicrosPerQuarter: 500000},
		{Tick: 480, MicrosPerQuarter: 250000},
	}, 480)

	// spans the breakpoint: 240 ticks slow + 240 ticks fast
	assert.Equal(t, 375*time.Millisecond, tm.DurationBetween(240, 720))
}

func TestDurationEmptyOrInvertedIntervalIsZero(t *testing.T) {
	tm := NewTempoMap(nil, 480)

	assert := assert.New(t)
	assert.Equal(time.Duration(0), tm.DurationBetween(100, 100))
	assert.Equal(time.Duration(0), tm.DurationBetween(200, 100))
}

func TestNewRumbleCommandClampsAmplitude(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(1.0, NewRumbleCommand(0, 160, 320, 1.7).Amplitude)
	assert.Equal(0.0, NewRumbleCommand(0, 160, 320, -0.2).Amplitude)
	assert.Equal(0.5, NewRumbleCommand(0, 160, 320, 0.5).Amplitude)
}

func TestChannelStreamDuration(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(time.Duration(0), ChannelStream(nil).Duration())

	s := ChannelStream{
		NewRumbleCommand(0, 160, 320, 1),
		NewRumbleCommand(time.Second, 0, 0, 0),
	}
	assert.Equal(time.Second, s.Duration())
}
