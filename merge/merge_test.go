package merge

import (
	"testing"
	"time"

	"github.com/mbaxter/joybeat/haptic"
	"github.com/mbaxter/joybeat/model"
	"github.com/mbaxter/joybeat/score"
	"github.com/stretchr/testify/assert"
)

func testTempo() model.TempoMap {
	return model.NewTempoMap(nil, 480)
}

func richTrack(num int, notes int) model.Track {
	t := model.Track{Num: num, Program: -1}
	pitches := []uint8{60, 64, 67, 72, 65, 62, 69, 71}
	for i := 0; i < notes; i++ {
		t.Events = append(t.Events, model.NoteEvent{
			StartTick:     uint32(i) * 240,
			DurationTicks: 200,
			Pitch:         pitches[i%len(pitches)],
			Velocity:      uint8(70 + (i*11)%50),
			TrackNum:      num,
		})
	}
	return t
}

func thinTrack(num int) model.Track {
	return model.Track{Num: num, Program: -1, Events: []model.NoteEvent{
		{StartTick: 0, DurationTicks: 4000, Pitch: 36, Velocity: 64, TrackNum: num},
		{StartTick: 8000, DurationTicks: 4000, Pitch: 38, Velocity: 64, TrackNum: num},
	}}
}

func metricsFor(tracks ...model.Track) []score.Metrics {
	song := &model.Song{Tracks: tracks, Tempo: testTempo(), TicksPerQuarter: 480}
	return score.AnalyzeAll(song)
}

func TestSelectTopTwoAndDropWeakest(t *testing.T) {
	// rich (high) / thin (low) / empty (zero): rich and thin get the
	// channels, empty is dropped
	metrics := metricsFor(thinTrack(0), richTrack(1, 12), model.Track{Num: 2, Program: -1})
	picks := SelectChannels(metrics)

	assert := assert.New(t)
	assert.Equal(1, picks[0])
	assert.Equal(0, picks[1])
}

func TestSelectBreaksTiesByLowestTrackNumber(t *testing.T) {
	// identical tracks produce identical scores
	metrics := metricsFor(richTrack(3, 12), richTrack(1, 12), richTrack(2, 12))
	picks := SelectChannels(metrics)

	assert := assert.New(t)
	assert.Equal(1, picks[0])
	assert.Equal(2, picks[1])
}

func TestSelectWithSingleUsableTrack(t *testing.T) {
	metrics := metricsFor(richTrack(0, 12))
	picks := SelectChannels(metrics)

	assert := assert.New(t)
	assert.Equal(0, picks[0])
	assert.Equal(Unassigned, picks[1])
}

func TestSelectNeverPicksEmptyOrPercussionTracks(t *testing.T) {
	drums := richTrack(0, 12)
	drums.Percussion = true
	metrics := metricsFor(drums, model.Track{Num: 1, Program: -1})
	picks := SelectChannels(metrics)

	assert := assert.New(t)
	assert.Equal(Unassigned, picks[0])
	assert.Equal(Unassigned, picks[1])
}

func TestSelectZeroTracks(t *testing.T) {
	picks := SelectChannels(nil)

	assert := assert.New(t)
	assert.Equal(Unassigned, picks[0])
	assert.Equal(Unassigned, picks[1])
}

func TestBuildStreamsEmptyInputYieldsEmptyStreams(t *testing.T) {
	song := &model.Song{Tempo: testTempo(), TicksPerQuarter: 480}
	streams := BuildStreams(song, [model.NumChannels]int{Unassigned, Unassigned})

	assert := assert.New(t)
	assert.Empty(streams[0])
	assert.Empty(streams[1])
}

func TestBuildStreamBracketsNoteWithActivationAndDeactivation(t *testing.T) {
	// pitch 60, velocity 127, 480 ticks at the default tempo: on at 0,
	// off at 500ms, full amplitude
	song := &model.Song{
		Tracks: []model.Track{{Num: 0, Program: -1, Events: []model.NoteEvent{
			{StartTick: 0, DurationTicks: 480, Pitch: 60, Velocity: 127},
		}}},
		Tempo:           testTempo(),
		TicksPerQuarter: 480,
	}
	streams := BuildStreams(song, [model.NumChannels]int{0, Unassigned})

	assert := assert.New(t)
	stream := streams[0]
	assert.Len(stream, 2)

	assert.Equal(time.Duration(0), stream[0].At)
	assert.Equal(1.0, stream[0].Amplitude)
	lo, hi, _ := haptic.Map(60, 127)
	assert.Equal(lo, stream[0].FreqLow)
	assert.Equal(hi, stream[0].FreqHigh)

	assert.Equal(500*time.Millisecond, stream[1].At)
	assert.True(stream[1].Silent())

	assert.Empty(streams[1])
}

func TestBuildStreamMostRecentNoteWins(t *testing.T) {
	// first note still sounding when the second starts; the second owns
	// the channel until its off, then silence (first already ended)
	song := &model.Song{
		Tracks: []model.Track{{Num: 0, Program: -1, Events: []model.NoteEvent{
			{StartTick: 0, DurationTicks: 960, Pitch: 60, Velocity: 100},
			{StartTick: 480, DurationTicks: 960, Pitch: 72, Velocity: 80},
		}}},
		Tempo:           testTempo(),
		TicksPerQuarter: 480,
	}
	streams := BuildStreams(song, [model.NumChannels]int{0, Unassigned})
	stream := streams[0]

	assert := assert.New(t)
	// on(60) at 0, on(72) at 500ms, off(60) at 1s keeps 72 (no command),
	// off(72) at 1.5s -> silence
	assert.Len(stream, 3)

	_, hi60, _ := haptic.Map(60, 100)
	_, hi72, _ := haptic.Map(72, 80)

	assert.Equal(hi60, stream[0].FreqHigh)
	assert.Equal(500*time.Millisecond, stream[1].At)
	assert.Equal(hi72, stream[1].FreqHigh)
	assert.Equal(1500*time.Millisecond, stream[2].At)
	assert.True(stream[2].Silent())
}

func TestBuildStreamRevertsToCoveredNote(t *testing.T) {
	// short note interrupts a long one; when it ends the long note
	// takes the actuator back
	song := &model.Song{
		Tracks: []model.Track{{Num: 0, Program: -1, Events: []model.NoteEvent{
			{StartTick: 0, DurationTicks: 1920, Pitch: 60, Velocity: 100},
			{StartTick: 480, DurationTicks: 480, Pitch: 72, Velocity: 80},
		}}},
		Tempo:           testTempo(),
		TicksPerQuarter: 480,
	}
	stream := BuildStreams(song, [model.NumChannels]int{0, Unassigned})[0]

	assert := assert.New(t)
	assert.Len(stream, 4)

	_, hi60, _ := haptic.Map(60, 100)
	_, hi72, _ := haptic.Map(72, 80)
	assert.Equal(hi60, stream[0].FreqHigh)
	assert.Equal(hi72, stream[1].FreqHigh)
	// interruption over: long note re-emitted
	assert.Equal(1000*time.Millisecond, stream[2].At)
	assert.Equal(hi60, stream[2].FreqHigh)
	assert.True(stream[3].Silent())
}

func TestBuildStreamIgnoresZeroDurationNotes(t *testing.T) {
	// the zero-length note at tick 0 must not claim the actuator: the
	// gap after the real first note stays silent until the next one
	song := &model.Song{
		Tracks: []model.Track{{Num: 0, Program: -1, Events: []model.NoteEvent{
			{StartTick: 0, DurationTicks: 0, Pitch: 60, Velocity: 100},
			{StartTick: 0, DurationTicks: 480, Pitch: 72, Velocity: 80},
			{StartTick: 1440, DurationTicks: 480, Pitch: 76, Velocity: 80},
		}}},
		Tempo:           testTempo(),
		TicksPerQuarter: 480,
	}
	stream := BuildStreams(song, [model.NumChannels]int{0, Unassigned})[0]

	assert := assert.New(t)
	assert.Len(stream, 4)

	_, hi60, _ := haptic.Map(60, 100)
	_, hi72, _ := haptic.Map(72, 80)
	_, hi76, _ := haptic.Map(76, 80)
	assert.Equal(hi72, stream[0].FreqHigh)
	assert.Equal(500*time.Millisecond, stream[1].At)
	assert.True(stream[1].Silent())
	assert.Equal(1500*time.Millisecond, stream[2].At)
	assert.Equal(hi76, stream[2].FreqHigh)
	assert.True(stream[3].Silent())

	for _, cmd := range stream {
		assert.NotEqual(hi60, cmd.FreqHigh)
	}
}

func TestStreamsAreNonDecreasingInTime(t *testing.T) {
	song := &model.Song{
		Tracks: []model.Track{richTrack(0, 20), thinTrack(1)},
		Tempo:  testTempo(), TicksPerQuarter: 480,
	}
	streams := BuildStreams(song, SelectChannels(metricsFor(richTrack(0, 20), thinTrack(1))))

	for ch, stream := range streams {
		for i := 1; i < len(stream); i++ {
			assert.GreaterOrEqual(t, stream[i].At, stream[i-1].At, "channel %d index %d", ch, i)
		}
	}
}

func TestBackToBackNotesDoNotGlue(t *testing.T) {
	// second note starts exactly where the first ends; the off sorts
	// before the on so the boundary carries the new note, not silence
	song := &model.Song{
		Tracks: []model.Track{{Num: 0, Program: -1, Events: []model.NoteEvent{
			{StartTick: 0, DurationTicks: 480, Pitch: 60, Velocity: 100},
			{StartTick: 480, DurationTicks: 480, Pitch: 64, Velocity: 100},
		}}},
		Tempo:           testTempo(),
		TicksPerQuarter: 480,
	}
	stream := BuildStreams(song, [model.NumChannels]int{0, Unassigned})[0]

	assert := assert.New(t)
	assert.Len(stream, 3)
	_, hi64, _ := haptic.Map(64, 100)
	assert.Equal(500*time.Millisecond, stream[1].At)
	assert.Equal(hi64, stream[1].FreqHigh)
	assert.True(stream[2].Silent())
}
