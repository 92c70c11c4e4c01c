package model

// ConnectionState tracks whether a device session's link is usable.
type ConnectionState int

const (
	Connected ConnectionState = iota
	Disconnected
)

func (s ConnectionState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// DeviceInfo identifies one opened controller. Owned by its session;
// State is the only mutable field.
type DeviceInfo struct {
	Path      string
	VendorID  uint16
	ProductID uint16
	UsagePage uint16
	Serial    string
	State     ConnectionState
}
