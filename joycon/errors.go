package joycon

import "fmt"

// DeviceErrorKind classifies controller failures.
type DeviceErrorKind int

const (
	// NotConnected means the session has no usable handle.
	NotConnected DeviceErrorKind = iota
	// InvalidDevice means the hardware isn't a controller we drive.
	InvalidDevice
	// InvalidRumble means rumble parameters were out of the device's range.
	InvalidRumble
	// SendFailed means an output report write failed or was incomplete.
	SendFailed
	// Disconnected means the wireless link dropped mid-session.
	Disconnected
)

func (k DeviceErrorKind) String() string {
	switch k {
	case NotConnected:
		return "not connected"
	case InvalidDevice:
		return "invalid device"
	case InvalidRumble:
		return "invalid rumble parameters"
	case SendFailed:
		return "send failed"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// DeviceError is surfaced to the playback layer, which reacts by
// stopping both channels. It is never silently retried.
type DeviceError struct {
	Kind  DeviceErrorKind
	Path  string
	cause error
}

func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("joycon: %v", e.Kind)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.cause
}
