// Package merge selects which tracks become haptic channels and flattens
// each selected track into the scheduled command stream one actuator can
// render.
package merge

import (
	"sort"

	"github.com/mbaxter/joybeat/haptic"
	"github.com/mbaxter/joybeat/model"
	"github.com/mbaxter/joybeat/score"
)

// Unassigned marks a channel with no source track.
const Unassigned = -1

// SelectChannels picks the channel source tracks: the two highest
// scoring, ties broken by lowest track number. Channels that can't be
// filled come back as Unassigned; that's silence, not an error.
func SelectChannels(metrics []score.Metrics) [model.NumChannels]int {
	type candidate struct {
		num   int
		score float64
	}
	var candidates []candidate
	for _, m := range metrics {
		if s := m.Score(); m.NoteCount > 0 && s > 0 {
			candidates = append(candidates, candidate{num: m.TrackNum, score: s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].num < candidates[j].num
	})

	picks := [model.NumChannels]int{Unassigned, Unassigned}
	for i := 0; i < model.NumChannels && i < len(candidates); i++ {
		picks[i] = candidates[i].num
	}
	return picks
}

// BuildStreams produces one ChannelStream per haptic channel from the
// song's selected tracks. Unassigned channels get an empty stream.
func BuildStreams(song *model.Song, picks [model.NumChannels]int) [model.NumChannels]model.ChannelStream {
	var streams [model.NumChannels]model.ChannelStream
	for ch, trackNum := range picks {
		if trackNum == Unassigned || trackNum >= len(song.Tracks) {
			continue
		}
		streams[ch] = buildStream(song.Tracks[trackNum], song.Tempo)
	}
	return streams
}

// edge is a note boundary in absolute ticks.
type edge struct {
	tick  uint32
	on    bool
	pitch uint8
	vel   uint8
	seq   int
}

type sounding struct {
	pitch uint8
	vel   uint8
	seq   int
}

// buildStream flattens polyphony onto the single actuator: the most
// recent note-on owns the channel until its note-off, then the next
// most recent still-sounding note (or silence) takes over. Every note's
// interval is bracketed by an activation and a deactivation.
func buildStream(track model.Track, tempo model.TempoMap) model.ChannelStream {
	edges := make([]edge, 0, 2*len(track.Events))
	for i, ev := range track.Events {
		// a zero-duration note renders nothing, and its off-edge would
		// sort ahead of its on-edge, leaving the note sounding forever
		if ev.DurationTicks == 0 {
			continue
		}
		edges = append(edges,
			edge{tick: ev.StartTick, on: true, pitch: ev.Pitch, vel: ev.Velocity, seq: i},
			edge{tick: ev.StartTick + ev.DurationTicks, on: false, pitch: ev.Pitch, seq: i},
		)
	}
	// offs before ons at the same tick so back-to-back notes don't glue
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].tick != edges[j].tick {
			return edges[i].tick < edges[j].tick
		}
		return !edges[i].on && edges[j].on
	})

	var stream model.ChannelStream
	var stack []sounding

	emit := func(tick uint32, cmd model.RumbleCommand) {
		cmd.At = tempo.TimeAt(tick)
		// same-instant commands collapse: the device renders one state
		// at a time so only the last write matters
		if n := len(stream); n > 0 && stream[n-1].At == cmd.At {
			stream[n-1] = cmd
			return
		}
		stream = append(stream, cmd)
	}

	current := func() model.RumbleCommand {
		if len(stack) == 0 {
			return model.NewRumbleCommand(0, 0, 0, 0)
		}
		top := stack[len(stack)-1]
		lo, hi, amp := haptic.Map(int(top.pitch), int(top.vel))
		return model.NewRumbleCommand(0, lo, hi, amp)
	}

	for _, e := range edges {
		if e.on {
			stack = append(stack, sounding{pitch: e.pitch, vel: e.vel, seq: e.seq})
			emit(e.tick, current())
			continue
		}
		idx := -1
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].seq == e.seq {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		wasOwner := idx == len(stack)-1
		stack = append(stack[:idx], stack[idx+1:]...)
		if wasOwner {
			emit(e.tick, current())
		}
	}

	// guarantee the stream ends silent
	if n := len(stream); n > 0 && !stream[n-1].Silent() {
		end := stream[n-1].At
		stream = append(stream, model.NewRumbleCommand(end, 0, 0, 0))
	}
	return stream
}
