package playback

import (
	"time"

	"github.com/mbaxter/joybeat/model"
)

// EventKind identifies scheduler lifecycle events.
type EventKind int

const (
	// EventStateChanged reports a state machine transition.
	EventStateChanged EventKind = iota
	// EventTimingFault reports dispatch falling behind real time past
	// the tolerance. Playback continues best-effort.
	EventTimingFault
	// EventDeviceError reports a controller failure; playback on both
	// channels has been stopped.
	EventDeviceError
	// EventFinished reports that all streams played to the end.
	EventFinished
)

// Event is one report from the scheduler. No failure path is silent:
// every fault produces an Event even when playback degrades gracefully.
type Event struct {
	Kind    EventKind
	State   model.PlaybackState
	Channel int           // channel the event concerns, or -1
	Lag     time.Duration // EventTimingFault only
	Err     error         // EventDeviceError only
}
