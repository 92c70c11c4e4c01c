// Package midi turns a raw MIDI byte stream into the read-only song
// structure the rest of the pipeline consumes: note events paired from
// on/off messages, per track, plus one tempo map for tick-to-time
// conversion.
package midi

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/mbaxter/joybeat/model"
	"github.com/mbaxter/joybeat/util"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

var headerMagic = []byte("MThd")

// ReadFile reads and parses a MIDI file from disk.
func ReadFile(path string) (*model.Song, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading midi file")
	}
	return Parse(dat)
}

// Parse decodes raw MIDI bytes into a Song. Unknown meta events are
// skipped; running status is handled by the underlying reader. A file
// with zero tracks or zero notes is valid and yields an empty Song.
// Parsing the same bytes twice yields identical structures.
func Parse(data []byte) (s *model.Song, e error) {
	if len(data) < len(headerMagic) || !bytes.HasPrefix(data, headerMagic) {
		return nil, newParseError(MalformedHeader, nil)
	}

	// the smf reader tolerates streams that end mid-chunk, so chunk
	// lengths are validated here before decoding
	if err := validateChunkLengths(data); err != nil {
		return nil, err
	}

	// SMPTE division has the high bit set; the smf reader panics on it
	// during decode, which would misreport the reason
	if len(data) >= 14 {
		if division := binary.BigEndian.Uint16(data[12:14]); division&0x8000 != 0 {
			return nil, newParseError(UnsupportedFormat,
				errors.Errorf("smpte time division %#04x", division))
		}
	}

	// the smf reader panics on some corrupt inputs
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = newParseError(InvalidEvent, errors.Errorf("parser panic: %v", r))
		}
	}()

	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, newParseError(classifyReadError(err), err)
	}

	metric, ok := parsed.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, newParseError(UnsupportedFormat,
			errors.Errorf("time division %v is not metric ticks", parsed.TimeFormat))
	}
	tpq := metric.Resolution()

	song := &model.Song{TicksPerQuarter: tpq}
	var tempoChanges []model.TempoChange

	for num, events := range parsed.Tracks {
		track := model.Track{Num: num, Program: -1}
		active := make(map[uint8]model.NoteEvent)
		var absTick uint32

		for _, event := range events {
			absTick += event.Delta

			var channel, key, velocity, program uint8
			var bpm float64
			var text string
			switch {
			case event.Message.GetMetaTempo(&bpm):
				if bpm > 0 {
					tempoChanges = append(tempoChanges, model.TempoChange{
						Tick:             absTick,
						MicrosPerQuarter: uint32(60000000.0/bpm + 0.5),
					})
				}
			case event.Message.GetMetaTrackName(&text):
				track.Name = text
			case event.Message.GetMetaInstrument(&text):
				track.Instrument = text
			case event.Message.GetProgramChange(&channel, &program):
				track.Program = int(program)
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				if channel == 9 {
					track.Percussion = true
				}
				if velocity == 0 {
					closeNote(&track, active, key, absTick)
					continue
				}
				// retrigger of a still-sounding pitch ends the first note
				closeNote(&track, active, key, absTick)
				active[key] = model.NoteEvent{
					StartTick: absTick,
					Pitch:     key,
					Velocity:  velocity,
					TrackNum:  num,
				}
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				if channel == 9 {
					track.Percussion = true
				}
				closeNote(&track, active, key, absTick)
			}
		}

		// notes left hanging at end of track get closed there, in key
		// order so repeat parses produce identical event order
		for _, key := range util.GetKeys(active) {
			closeNote(&track, active, key, absTick)
		}

		sort.SliceStable(track.Events, func(i, j int) bool {
			return track.Events[i].StartTick < track.Events[j].StartTick
		})
		song.Tracks = append(song.Tracks, track)
	}

	sort.SliceStable(tempoChanges, func(i, j int) bool {
		return tempoChanges[i].Tick < tempoChanges[j].Tick
	})
	song.Tempo = model.NewTempoMap(dedupByTick(tempoChanges), tpq)
	return song, nil
}

// closeNote pairs a sounding note with its end tick and records it.
func closeNote(track *model.Track, active map[uint8]model.NoteEvent, key uint8, endTick uint32) {
	note, ok := active[key]
	if !ok {
		return
	}
	delete(active, key)
	if endTick > note.StartTick {
		note.DurationTicks = endTick - note.StartTick
	}
	track.Events = append(track.Events, note)
}

// validateChunkLengths walks the MThd/MTrk chunk framing and rejects
// streams whose declared chunk lengths run past the end of the data.
func validateChunkLengths(data []byte) error {
	offset := 0
	for offset < len(data) {
		if len(data)-offset < 8 {
			return newParseError(TruncatedStream,
				errors.Errorf("dangling chunk header at byte %d", offset))
		}
		length := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8 + length
		if offset > len(data) {
			return newParseError(TruncatedStream,
				errors.Errorf("chunk declares %d bytes past end of stream", offset-len(data)))
		}
	}
	return nil
}

// dedupByTick keeps the first change at any given tick; input is sorted.
func dedupByTick(changes []model.TempoChange) []model.TempoChange {
	var res []model.TempoChange
	for _, c := range changes {
		if len(res) > 0 && res[len(res)-1].Tick == c.Tick {
			continue
		}
		res = append(res, c)
	}
	return res
}

func classifyReadError(err error) ParseErrorKind {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return TruncatedStream
	}
	return InvalidEvent
}
