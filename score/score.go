// Package score ranks MIDI tracks by how well they'd feel as a haptic
// channel. Scoring is a pure function of a track's event data so the
// same file always ranks the same way.
package score

import (
	"math"
	"sort"
	"strings"

	"github.com/mbaxter/joybeat/model"
)

// TrackType is a coarse musical role used to bias track selection.
type TrackType int

const (
	Unknown TrackType = iota
	Melody
	Harmony
	Bass
	Drums
	Vocals
)

func (t TrackType) String() string {
	switch t {
	case Melody:
		return "melody"
	case Harmony:
		return "harmony"
	case Bass:
		return "bass"
	case Drums:
		return "drums"
	case Vocals:
		return "vocals"
	}
	return "unknown"
}

// Metrics summarizes one track's playable characteristics. All time
// figures are in seconds, derived through the tempo map.
type Metrics struct {
	TrackNum         int
	NoteCount        int
	UniqueNotes      int
	PitchRange       uint8
	AvgVelocity      float64
	VelocityVariance float64
	AvgNoteDuration  float64
	TotalDuration    float64
	NoteDensity      float64 // notes per second
	MelodicMovement  float64 // mean absolute interval between consecutive notes
	SustainRatio     float64
	RhythmicRegular  float64
	Percussion       bool
	Type             TrackType
}

// weights is the fixed linear combination behind Score. Each component
// is normalized to [0,1] before weighting; proximity-to-ideal terms
// reward tracks that rumble well rather than raw maximums.
type weights struct {
	noteDensity     float64
	velocityVar     float64
	uniqueNotes     float64
	avgNoteDuration float64
	pitchRange      float64
	melodicMovement float64
	sustainRatio    float64
	rhythmicRegular float64
}

var defaultWeights = weights{
	noteDensity:     0.25,
	velocityVar:     0.10,
	uniqueNotes:     0.15,
	avgNoteDuration: 0.15,
	pitchRange:      0.15,
	melodicMovement: 0.10,
	sustainRatio:    0.05,
	rhythmicRegular: 0.05,
}

// Analyze computes Metrics for one parsed track. Pure: identical input
// yields identical output, independent of other tracks.
func Analyze(track model.Track, tempo model.TempoMap) Metrics {
	m := Metrics{
		TrackNum:   track.Num,
		NoteCount:  track.NoteCount(),
		Percussion: track.Percussion,
	}

	if m.NoteCount == 0 {
		m.Type = classify(track, m)
		return m
	}

	unique := make(map[uint8]bool)
	var minPitch, maxPitch uint8 = 127, 0
	var velocitySum float64
	velocities := make([]float64, 0, m.NoteCount)
	var durationSum float64
	var movementSum float64
	var sustainSum float64
	onsets := make([]float64, 0, m.NoteCount)
	var endTick uint32

	for i, ev := range track.Events {
		unique[ev.Pitch] = true
		if ev.Pitch < minPitch {
			minPitch = ev.Pitch
		}
		if ev.Pitch > maxPitch {
			maxPitch = ev.Pitch
		}
		velocitySum += float64(ev.Velocity)
		velocities = append(velocities, float64(ev.Velocity))

		d := tempo.DurationBetween(ev.StartTick, ev.StartTick+ev.DurationTicks).Seconds()
		durationSum += d
		sustainSum += d

		if i > 0 {
			movementSum += math.Abs(float64(ev.Pitch) - float64(track.Events[i-1].Pitch))
		}
		onsets = append(onsets, tempo.TimeAt(ev.StartTick).Seconds())

		if end := ev.StartTick + ev.DurationTicks; end > endTick {
			endTick = end
		}
	}

	m.UniqueNotes = len(unique)
	m.PitchRange = maxPitch - minPitch
	m.AvgVelocity = velocitySum / float64(m.NoteCount)
	m.VelocityVariance = stddev(velocities)
	m.AvgNoteDuration = durationSum / float64(m.NoteCount)
	m.TotalDuration = tempo.TimeAt(endTick).Seconds()
	if m.TotalDuration > 0 {
		m.NoteDensity = float64(m.NoteCount) / m.TotalDuration
		m.SustainRatio = math.Min(sustainSum/m.TotalDuration, 1.0)
	}
	if m.NoteCount > 1 {
		m.MelodicMovement = movementSum / float64(m.NoteCount-1)
	}
	m.RhythmicRegular = regularity(onsets)
	m.Type = classify(track, m)
	return m
}

// AnalyzeAll runs Analyze over every track of a song, in track order.
func AnalyzeAll(song *model.Song) []Metrics {
	res := make([]Metrics, len(song.Tracks))
	for i, t := range song.Tracks {
		res[i] = Analyze(t, song.Tempo)
	}
	return res
}

// Score collapses Metrics into a single desirability number. Percussion
// and empty tracks score exactly 0, so they never outrank any track
// that has at least one note.
func (m Metrics) Score() float64 {
	if m.Percussion || m.NoteCount == 0 {
		return 0
	}

	w := defaultWeights

	// density rewards proximity to ~3 notes/sec rather than raw speed
	densityScore := math.Max(0, 1-math.Abs(m.NoteDensity-3.0)/5.0) * w.noteDensity
	velocityScore := math.Min(m.VelocityVariance/30.0, 1.0) * w.velocityVar

	uniqueRatio := float64(m.UniqueNotes) / math.Max(float64(m.NoteCount), 1)
	varietyScore := (1 - math.Abs(uniqueRatio-0.5)) * w.uniqueNotes

	durationScore := math.Max(0, 1-math.Abs(m.AvgNoteDuration-0.3)) * w.avgNoteDuration

	normRange := float64(m.PitchRange) / 127.0
	rangeScore := (1 - math.Abs(normRange-0.3)) * w.pitchRange

	movementScore := math.Max(0, 1-math.Abs(m.MelodicMovement-2.0)/12.0) * w.melodicMovement
	sustainScore := (1 - math.Abs(m.SustainRatio-0.6)) * w.sustainRatio
	rhythmScore := m.RhythmicRegular * w.rhythmicRegular

	base := densityScore + velocityScore + varietyScore + durationScore +
		rangeScore + movementScore + sustainScore + rhythmScore

	multiplier := 1.0
	switch m.Type {
	case Harmony:
		multiplier = 1.5
	case Melody:
		multiplier = 1.3
	case Bass, Vocals:
		multiplier = 1.1
	case Drums:
		multiplier = 0
	}

	// sweet spot: moderate density, small pitch vocabulary, long track
	bonus := 1.0
	if m.NoteDensity >= 2.0 && m.NoteDensity <= 4.0 &&
		m.UniqueNotes >= 5 && m.UniqueNotes <= 20 &&
		m.NoteCount >= 300 {
		bonus = 1.3
	}

	return base * multiplier * bonus
}

// classify assigns a musical role from the program number when present,
// then from name hints, then from the metrics themselves.
func classify(track model.Track, m Metrics) TrackType {
	if m.Percussion {
		return Drums
	}

	if track.Program >= 0 {
		switch p := track.Program; {
		case p <= 7: // piano
			return Melody
		case p <= 31: // chromatic perc, organ, guitar
			return Harmony
		case p <= 39: // bass
			return Bass
		case p <= 55: // strings, ensemble
			return Harmony
		case p <= 79: // brass, reed, pipe
			return Melody
		case p <= 87: // synth lead
			return Melody
		case p <= 103: // synth pad, fx
			return Harmony
		case p <= 111: // ethnic
			return Melody
		case p <= 119: // percussive
			return Drums
		default: // sound effects
			return Unknown
		}
	}

	name := strings.ToLower(track.Name)
	instrument := strings.ToLower(track.Instrument)
	switch {
	case strings.Contains(name, "voc") || strings.Contains(name, "voice") ||
		strings.Contains(name, "sing") || strings.Contains(instrument, "vocal"):
		return Vocals
	case strings.Contains(name, "bass") || strings.Contains(instrument, "bass"):
		return Bass
	case strings.Contains(name, "lead") || strings.Contains(name, "melody") ||
		strings.Contains(instrument, "lead"):
		return Melody
	case strings.Contains(name, "drum") || strings.Contains(name, "percussion"):
		return Drums
	case m.NoteDensity > 3.0 && m.UniqueNotes > 12:
		return Melody
	case m.SustainRatio > 0.7:
		return Harmony
	}
	return Unknown
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

// regularity is 1 for perfectly even note onsets and approaches 0 as
// inter-onset intervals get erratic.
func regularity(onsets []float64) float64 {
	if len(onsets) < 3 {
		return 0
	}
	sorted := append([]float64(nil), onsets...)
	sort.Float64s(sorted)
	intervals := make([]float64, 0, len(sorted)-1)
	var sum float64
	for i := 1; i < len(sorted); i++ {
		iv := sorted[i] - sorted[i-1]
		intervals = append(intervals, iv)
		sum += iv
	}
	mean := sum / float64(len(intervals))
	if mean == 0 {
		return 0
	}
	return math.Max(0, 1-stddev(intervals)/mean)
}
