// Package playback walks two rumble command streams in real time and
// dispatches them to a pair of controller sessions that share one clock
// origin, so both hands stay in phase with the source file.
package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbaxter/joybeat/model"
	"github.com/pkg/errors"
)

// Session is the slice of a device session the scheduler consumes.
// *joycon.Controller satisfies it; tests use mocks.
type Session interface {
	SendRumble(freqLow, freqHigh, amplitude float64) error
	Identity() model.DeviceInfo
	Disconnects() <-chan error
}

const (
	// DefaultPollInterval bounds how long a dispatch loop sleeps before
	// re-checking for pause/stop, and is the dispatch jitter bound.
	DefaultPollInterval = 5 * time.Millisecond
	// DefaultLagTolerance is how far behind schedule a dispatch may run
	// before a timing fault is reported.
	DefaultLagTolerance = 50 * time.Millisecond
)

// Options tune the scheduler's timing behavior.
type Options struct {
	PollInterval time.Duration
	LagTolerance time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.LagTolerance <= 0 {
		o.LagTolerance = DefaultLagTolerance
	}
	return o
}

// Scheduler runs one playback instance. Create with New, drive with
// Start/Pause/Resume/Stop, observe with Events and Wait. A Scheduler is
// not reusable once it reaches Stopped or Idle.
type Scheduler struct {
	id       uuid.UUID
	streams  [model.NumChannels]model.ChannelStream
	sessions [model.NumChannels]Session
	opts     Options

	mu             sync.Mutex
	state          model.PlaybackState
	origin         time.Time
	elapsedAtPause time.Duration
	terminated     bool

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	events   chan Event
	loops    sync.WaitGroup
}

// New builds a scheduler over the two channel streams. A nil session
// leaves its channel silent; its stream is ignored.
func New(streams [model.NumChannels]model.ChannelStream, sessions [model.NumChannels]Session, opts Options) *Scheduler {
	return &Scheduler{
		id:       uuid.New(),
		streams:  streams,
		sessions: sessions,
		opts:     opts.withDefaults(),
		state:    model.Idle,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		events:   make(chan Event, 64),
	}
}

// ID identifies this playback instance.
func (s *Scheduler) ID() uuid.UUID {
	return s.id
}

// Events delivers scheduler reports. The channel is buffered; events
// are dropped rather than ever blocking the timing loops.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// State returns the current state machine position.
func (s *Scheduler) State() model.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns playback time progressed so far.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == model.Playing {
		return time.Since(s.origin)
	}
	return s.elapsedAtPause
}

// Start transitions Idle -> Playing and records the clock origin that
// both dispatch loops schedule against.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return errors.New("scheduler already terminated, create a new one")
	}
	if s.state != model.Idle {
		state := s.state
		s.mu.Unlock()
		return errors.Errorf("cannot start playback from state %v", state)
	}
	s.state = model.Playing
	s.origin = time.Now()
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: model.Playing, Channel: -1})

	for ch := 0; ch < model.NumChannels; ch++ {
		if s.sessions[ch] == nil {
			continue
		}
		s.loops.Add(1)
		go s.dispatchLoop(ch)
	}
	go s.monitorDisconnects()
	go s.awaitCompletion()
	return nil
}

// Pause transitions Playing -> Paused, preserving elapsed time.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	if s.state != model.Playing {
		state := s.state
		s.mu.Unlock()
		return errors.Errorf("cannot pause from state %v", state)
	}
	s.elapsedAtPause = time.Since(s.origin)
	s.state = model.Paused
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: model.Paused, Channel: -1})
	return nil
}

// Resume transitions Paused -> Playing, recomputing the origin so the
// remaining events keep their original relative timing.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	if s.state != model.Paused {
		state := s.state
		s.mu.Unlock()
		return errors.Errorf("cannot resume from state %v", state)
	}
	s.origin = time.Now().Add(-s.elapsedAtPause)
	s.state = model.Playing
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: model.Playing, Channel: -1})
	return nil
}

// Stop halts playback from any state. Idempotent and safe from any
// goroutine. Both sessions receive an immediate zero-amplitude command
// so no rumble sticks on.
func (s *Scheduler) Stop() {
	s.terminate(model.Stopped, -1, nil)
}

// Wait blocks until the scheduler reaches a terminal state.
func (s *Scheduler) Wait() {
	<-s.done
}

// terminate performs the shared shutdown path for Stop, device failure
// (final = Idle) and natural completion.
func (s *Scheduler) terminate(final model.PlaybackState, channel int, cause error) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.state == model.Playing && !s.origin.IsZero() {
			// freeze elapsed for post-mortem status queries
			s.elapsedAtPause = time.Since(s.origin)
		}
		s.state = final
		s.terminated = true
		s.mu.Unlock()

		close(s.stopCh)
		s.silenceAll()

		if cause != nil {
			s.emit(Event{Kind: EventDeviceError, State: final, Channel: channel, Err: cause})
		}
		s.emit(Event{Kind: EventStateChanged, State: final, Channel: -1})
		close(s.done)
	})
}

// silenceAll best-effort zeroes both actuators. Session writes are
// internally serialized, so flushing from here while a loop is mid-send
// is safe.
func (s *Scheduler) silenceAll() {
	for _, sess := range s.sessions {
		if sess != nil {
			_ = sess.SendRumble(0, 0, 0)
		}
	}
}

// dispatchLoop drives one channel. It shares nothing mutable with the
// other loop: scheduled times are computed against the fixed origin,
// never accumulated, so long playbacks cannot drift.
func (s *Scheduler) dispatchLoop(ch int) {
	defer s.loops.Done()
	stream := s.streams[ch]
	session := s.sessions[ch]

	for i := 0; i < len(stream); {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.Lock()
		state := s.state
		origin := s.origin
		s.mu.Unlock()

		if state == model.Paused {
			s.sleep(s.opts.PollInterval)
			continue
		}
		if state != model.Playing {
			return
		}

		elapsed := time.Since(origin)
		cmd := stream[i]
		if cmd.At <= elapsed {
			if lag := elapsed - cmd.At; lag > s.opts.LagTolerance {
				s.emit(Event{Kind: EventTimingFault, State: state, Channel: ch, Lag: lag})
			}
			if err := session.SendRumble(cmd.FreqLow, cmd.FreqHigh, cmd.Amplitude); err != nil {
				// one silent arm is not acceptable degraded mode: take
				// the whole playback down
				s.terminate(model.Idle, ch, err)
				return
			}
			i++
			continue
		}

		wait := cmd.At - elapsed
		if wait > s.opts.PollInterval {
			wait = s.opts.PollInterval
		}
		s.sleep(wait)
	}
}

// sleep waits for d or until stop, whichever comes first.
func (s *Scheduler) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.stopCh:
	}
}

// monitorDisconnects watches both sessions' disconnect streams and
// drives the Playing/Paused -> Idle transition.
func (s *Scheduler) monitorDisconnects() {
	var d0, d1 <-chan error
	if s.sessions[0] != nil {
		d0 = s.sessions[0].Disconnects()
	}
	if s.sessions[1] != nil {
		d1 = s.sessions[1].Disconnects()
	}
	select {
	case <-s.stopCh:
	case err := <-d0:
		s.terminate(model.Idle, 0, err)
	case err := <-d1:
		s.terminate(model.Idle, 1, err)
	}
}

// awaitCompletion stops the playback once both loops have played their
// streams to the end.
func (s *Scheduler) awaitCompletion() {
	s.loops.Wait()
	select {
	case <-s.stopCh:
		return // already terminated by stop or failure
	default:
	}
	s.emit(Event{Kind: EventFinished, State: model.Stopped, Channel: -1})
	s.terminate(model.Stopped, -1, nil)
}

// emit never blocks the timing path; when the buffer is full the event
// is dropped.
func (s *Scheduler) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
