package model

import "time"

// NoteEvent is a single sounded note, already paired from MIDI
// note-on/note-off messages. Immutable once parsed.
type NoteEvent struct {
	StartTick     uint32
	DurationTicks uint32
	Pitch         uint8
	Velocity      uint8
	TrackNum      int
}

// Track is one MIDI track's notes in start-tick order, plus the meta
// information the scorer cares about.
type Track struct {
	Num        int
	Name       string
	Instrument string
	// Program is the last ProgramChange seen on the track, or -1.
	Program int
	// Percussion is set when any event on the track uses channel 10.
	Percussion bool
	Events     []NoteEvent
}

// NoteCount returns the number of notes on the track.
func (t Track) NoteCount() int {
	return len(t.Events)
}

// Song is the parsed, read-only form of a MIDI file.
type Song struct {
	Tracks          []Track
	Tempo           TempoMap
	TicksPerQuarter uint16
}

// TotalNotes sums note counts across all tracks.
func (s *Song) TotalNotes() int {
	var n int
	for _, t := range s.Tracks {
		n += t.NoteCount()
	}
	return n
}

// TempoChange is one breakpoint of the tempo map.
type TempoChange struct {
	Tick             uint32
	MicrosPerQuarter uint32
}

// TempoMap is an ordered sequence of tempo breakpoints. The first
// breakpoint is always at tick 0 (the parser inserts the MIDI default
// of 500000 µs/quarter when a file doesn't set one).
type TempoMap struct {
	Changes         []TempoChange
	TicksPerQuarter uint16
}

const DefaultMicrosPerQuarter = 500000

// NewTempoMap builds a map over the given breakpoints, which must be
// sorted by tick with no duplicates. A tick-0 default entry is added
// when missing.
func NewTempoMap(changes []TempoChange, ticksPerQuarter uint16) TempoMap {
	if len(changes) == 0 || changes[0].Tick != 0 {
		changes = append([]TempoChange{{Tick: 0, MicrosPerQuarter: DefaultMicrosPerQuarter}}, changes...)
	}
	return TempoMap{Changes: changes, TicksPerQuarter: ticksPerQuarter}
}

// DurationBetween converts a tick interval to wall-clock time by
// accumulating piecewise over the tempo breakpoints that fall inside it.
func (tm TempoMap) DurationBetween(startTick, endTick uint32) time.Duration {
	if endTick <= startTick || tm.TicksPerQuarter == 0 {
		return 0
	}
	var micros float64
	current := startTick
	for i := tm.indexAt(startTick); i < len(tm.Changes) && current < endTick; i++ {
		segEnd := endTick
		if i+1 < len(tm.Changes) && tm.Changes[i+1].Tick < segEnd {
			segEnd = tm.Changes[i+1].Tick
		}
		if segEnd <= current {
			continue
		}
		microsPerTick := float64(tm.Changes[i].MicrosPerQuarter) / float64(tm.TicksPerQuarter)
		micros += float64(segEnd-current) * microsPerTick
		current = segEnd
	}
	return time.Duration(micros) * time.Microsecond
}

// TimeAt converts an absolute tick position to an offset from tick 0.
func (tm TempoMap) TimeAt(tick uint32) time.Duration {
	return tm.DurationBetween(0, tick)
}

// indexAt finds the breakpoint governing the given tick: the largest
// breakpoint tick <= target, found by binary search.
func (tm TempoMap) indexAt(tick uint32) int {
	lo, hi := 0, len(tm.Changes)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tm.Changes[mid].Tick <= tick {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
