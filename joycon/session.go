// Package joycon drives Nintendo controllers as haptic transducers over
// Bluetooth HID: output-report encoding for HD rumble, session lifecycle,
// and device discovery.
package joycon

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/mbaxter/joybeat/model"
	"github.com/pkg/errors"
)

// Type distinguishes the controller variants we know how to address.
// The right Joy-Con carries its rumble data at a different report offset.
type Type int

const (
	TypeLeft Type = iota
	TypeRight
	TypePro
)

func (t Type) String() string {
	switch t {
	case TypeLeft:
		return "joy-con (L)"
	case TypeRight:
		return "joy-con (R)"
	case TypePro:
		return "pro controller"
	}
	return "unknown"
}

// hidDevice is the slice of the HID handle the session needs. Tests
// substitute a mock; production uses *hid.Device from go-hid.
type hidDevice interface {
	Write(b []byte) (int, error)
	ReadWithTimeout(b []byte, timeout time.Duration) (int, error)
	Close() error
}

const (
	readPumpTimeout    = 500 * time.Millisecond
	disconnectDebounce = 100 * time.Millisecond
)

// Controller owns one connected device. Exactly one dispatch loop may
// use it at a time; the session serializes writes internally.
type Controller struct {
	mu     sync.Mutex
	dev    hidDevice
	info   model.DeviceInfo
	kind   Type
	timing byte

	disc      chan error
	debounced func(func())
	closeOnce sync.Once
	done      chan struct{}
}

// NewController wraps an open HID handle. It does not touch the device;
// call Initialize before sending rumble.
func NewController(dev hidDevice, info model.DeviceInfo, kind Type) *Controller {
	c := &Controller{
		dev:       dev,
		info:      info,
		kind:      kind,
		disc:      make(chan error, 1),
		debounced: debounce.New(disconnectDebounce),
		done:      make(chan struct{}),
	}
	go c.readPump()
	return c
}

// Identity returns the device's identity and connection state.
func (c *Controller) Identity() model.DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Type returns the controller variant.
func (c *Controller) Type() Type {
	return c.kind
}

// Disconnects delivers at most one error when the link drops.
func (c *Controller) Disconnects() <-chan error {
	return c.disc
}

// SendRumble emits one HD rumble state. Frequencies are Hz, amplitude
// is [0,1]; out-of-range arguments are rejected rather than clamped so
// an upstream mapping bug surfaces instead of rumbling wrong.
func (c *Controller) SendRumble(freqLow, freqHigh, amplitude float64) error {
	if freqLow < 0 || freqLow > MaxFrequency || freqHigh < 0 || freqHigh > MaxFrequency {
		return &DeviceError{Kind: InvalidRumble, Path: c.info.Path,
			cause: errors.Errorf("frequency out of range (0-%v Hz)", MaxFrequency)}
	}
	if amplitude < 0 || amplitude > 1 {
		return &DeviceError{Kind: InvalidRumble, Path: c.info.Path,
			cause: errors.New("amplitude out of range (0-1.0)")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, reportLen)
	buf[0] = cmdRumble
	buf[1] = c.timing & 0x0f

	offset, other := leftDataOffset, rightDataOffset
	if c.kind == TypeRight {
		offset, other = rightDataOffset, leftDataOffset
	}
	packRumble(buf, offset, freqLow, freqHigh, amplitude)
	packNeutral(buf, other)

	return c.writeLocked(buf)
}

// Initialize enables the vibration unit and switches the controller to
// the standard full input report mode.
func (c *Controller) Initialize() error {
	if err := c.sendSubcommand(subEnableVibration, []byte{0x01}); err != nil {
		return err
	}
	return c.sendSubcommand(subSetInputMode, []byte{0x30})
}

// PlayScale rumbles a one-octave major scale. Used as a connect chime
// so each hand can be identified by feel.
func (c *Controller) PlayScale() error {
	scale := []float64{524, 588, 660, 698, 784, 880, 988, 1046}
	for _, freq := range scale {
		if err := c.SendRumble(freq/2, freq, 0.9); err != nil {
			return err
		}
		time.Sleep(150 * time.Millisecond)
		if err := c.SendRumble(0, 0, 0); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
	}
	return c.SendRumble(0, 0, 0)
}

// Close releases the device. Safe to call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.info.State = model.Disconnected
		dev := c.dev
		c.dev = nil
		c.mu.Unlock()
		if dev != nil {
			err = dev.Close()
		}
	})
	return err
}

func (c *Controller) sendSubcommand(sub byte, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, reportLen)
	buf[0] = cmdSubcommand
	buf[1] = c.timing & 0x0f
	packNeutral(buf, leftDataOffset)
	packNeutral(buf, rightDataOffset)
	buf[subcommandSlot] = sub
	end := subcommandSlot + 1 + len(data)
	if end > reportLen {
		end = reportLen
	}
	copy(buf[subcommandSlot+1:end], data)

	return c.writeLocked(buf)
}

// writeLocked requires c.mu held.
func (c *Controller) writeLocked(buf []byte) error {
	if c.dev == nil {
		return &DeviceError{Kind: NotConnected, Path: c.info.Path}
	}
	n, err := c.dev.Write(buf)
	if err != nil {
		c.info.State = model.Disconnected
		c.reportDisconnect(err)
		return &DeviceError{Kind: SendFailed, Path: c.info.Path, cause: err}
	}
	if n != len(buf) {
		return &DeviceError{Kind: SendFailed, Path: c.info.Path,
			cause: errors.Errorf("incomplete write: %d of %d bytes", n, len(buf))}
	}
	c.timing++
	return nil
}

// readPump drains input reports so the OS buffer never fills, and turns
// read failures into a disconnect signal.
func (c *Controller) readPump() {
	buf := make([]byte, 64)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.Lock()
		dev := c.dev
		c.mu.Unlock()
		if dev == nil {
			return
		}

		if _, err := dev.ReadWithTimeout(buf, readPumpTimeout); err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.mu.Lock()
			c.info.State = model.Disconnected
			c.mu.Unlock()
			c.reportDisconnect(err)
			return
		}
	}
}

// reportDisconnect publishes a single debounced disconnect error; write
// and read failures tend to arrive in bursts when the link drops.
func (c *Controller) reportDisconnect(cause error) {
	c.debounced(func() {
		err := &DeviceError{Kind: Disconnected, Path: c.info.Path, cause: cause}
		select {
		case c.disc <- err:
		default:
		}
	})
}
