package model

// PlaybackState is the scheduler's state machine position.
// Idle -> Playing -> (Paused <-> Playing) -> Stopped, with
// Playing/Paused -> Idle on device failure.
type PlaybackState int

const (
	Idle PlaybackState = iota
	Playing
	Paused
	Stopped
)

func (s PlaybackState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
