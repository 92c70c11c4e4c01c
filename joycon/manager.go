package joycon

import (
	"fmt"

	"github.com/mbaxter/joybeat/model"
	"github.com/pkg/errors"
	hid "github.com/sstallion/go-hid"
)

// Nintendo's Bluetooth HID identifiers.
const (
	VendorNintendo       = 0x057e
	ProductJoyConL       = 0x2006
	ProductJoyConR       = 0x2007
	ProductProController = 0x2009
	ProductChargingGrip  = 0x200e
)

// typeFor resolves the controller variant. The charging grip exposes
// both Joy-Cons through separate HID interfaces.
func typeFor(productID uint16, interfaceNbr int) (Type, error) {
	switch productID {
	case ProductJoyConL:
		return TypeLeft, nil
	case ProductJoyConR:
		return TypeRight, nil
	case ProductProController:
		return TypePro, nil
	case ProductChargingGrip:
		switch interfaceNbr {
		case 0, -1:
			return TypeRight, nil
		case 1:
			return TypeLeft, nil
		}
		return 0, &DeviceError{Kind: InvalidDevice,
			cause: errors.Errorf("unknown charging grip interface %d", interfaceNbr)}
	}
	return 0, &DeviceError{Kind: InvalidDevice,
		cause: errors.Errorf("unknown product id %04x", productID)}
}

// Manager discovers and opens controllers through the system HID layer.
type Manager struct{}

func NewManager() (*Manager, error) {
	if err := hid.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing hidapi")
	}
	return &Manager{}, nil
}

// Discover opens every connected controller and returns live sessions.
// Devices that fail to open are skipped, not fatal: a usable subset is
// better than refusing to play.
func (m *Manager) Discover() ([]*Controller, error) {
	var sessions []*Controller

	err := hid.Enumerate(VendorNintendo, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		kind, err := typeFor(info.ProductID, info.InterfaceNbr)
		if err != nil {
			return nil
		}

		dev, err := hid.OpenPath(info.Path)
		if err != nil {
			fmt.Printf("Skipping %v at %v: %v\n", kind, info.Path, err)
			return nil
		}

		sessions = append(sessions, NewController(dev, model.DeviceInfo{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			UsagePage: info.UsagePage,
			Serial:    info.SerialNbr,
			State:     model.Connected,
		}, kind))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "enumerating hid devices")
	}
	return sessions, nil
}

// ConnectAndInitialize discovers controllers and brings each into a
// rumble-ready state.
func (m *Manager) ConnectAndInitialize() ([]*Controller, error) {
	sessions, err := m.Discover()
	if err != nil {
		return nil, err
	}
	ready := sessions[:0]
	for _, s := range sessions {
		if err := s.Initialize(); err != nil {
			fmt.Printf("Skipping %v: %v\n", s.Identity().Path, err)
			s.Close()
			continue
		}
		ready = append(ready, s)
	}
	return ready, nil
}

// Close releases the HID layer.
func (m *Manager) Close() error {
	return hid.Exit()
}
