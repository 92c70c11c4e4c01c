package joycon

import (
	"sync"
	"testing"
	"time"

	"github.com/mbaxter/joybeat/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// mockDevice records writes and lets tests fail reads on demand.
type mockDevice struct {
	mu      sync.Mutex
	writes  [][]byte
	readErr error
	closed  bool
}

func (d *mockDevice) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := append([]byte(nil), b...)
	d.writes = append(d.writes, cp)
	return len(b), nil
}

func (d *mockDevice) ReadWithTimeout(b []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	err := d.readErr
	d.mu.Unlock()
	if err != nil {
		return 0, err
	}
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (d *mockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *mockDevice) failReads(err error) {
	d.mu.Lock()
	d.readErr = err
	d.mu.Unlock()
}

func (d *mockDevice) lastWrite() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.writes) == 0 {
		return nil
	}
	return d.writes[len(d.writes)-1]
}

func newTestController(kind Type) (*Controller, *mockDevice) {
	dev := &mockDevice{}
	c := NewController(dev, model.DeviceInfo{Path: "test-path", State: model.Connected}, kind)
	return c, dev
}

func TestSendRumbleReportLayoutLeft(t *testing.T) {
	c, dev := newTestController(TypeLeft)
	defer c.Close()

	assert := assert.New(t)
	assert.NoError(c.SendRumble(160, 320, 0.9))

	buf := dev.lastWrite()
	assert.Len(buf, reportLen)
	assert.Equal(byte(cmdRumble), buf[0])
	// left data sits at offset 2; right side stays neutral
	assert.Equal(neutralRumble[:], buf[rightDataOffset:rightDataOffset+4])
	assert.NotEqual(neutralRumble[:], buf[leftDataOffset:leftDataOffset+4])
}

func TestSendRumbleReportLayoutRight(t *testing.T) {
	c, dev := newTestController(TypeRight)
	defer c.Close()

	assert := assert.New(t)
	assert.NoError(c.SendRumble(160, 320, 0.9))

	buf := dev.lastWrite()
	assert.Equal(neutralRumble[:], buf[leftDataOffset:leftDataOffset+4])
	assert.NotEqual(neutralRumble[:], buf[rightDataOffset:rightDataOffset+4])
}

func TestTimingByteRotates(t *testing.T) {
	c, dev := newTestController(TypeLeft)
	defer c.Close()

	for i := 0; i < 20; i++ {
		assert.NoError(t, c.SendRumble(160, 320, 0.5))
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	for i, buf := range dev.writes {
		assert.Equal(t, byte(i%16), buf[1], "write %d", i)
	}
}

func TestSendRumbleRejectsOutOfRangeParameters(t *testing.T) {
	c, _ := newTestController(TypeLeft)
	defer c.Close()

	assert := assert.New(t)

	var devErr *DeviceError
	err := c.SendRumble(0, 1300, 0.5)
	assert.ErrorAs(err, &devErr)
	assert.Equal(InvalidRumble, devErr.Kind)

	err = c.SendRumble(160, 320, 1.5)
	assert.ErrorAs(err, &devErr)
	assert.Equal(InvalidRumble, devErr.Kind)

	err = c.SendRumble(160, 320, -0.1)
	assert.ErrorAs(err, &devErr)
	assert.Equal(InvalidRumble, devErr.Kind)
}

func TestInitializeSendsVibrationAndInputModeSubcommands(t *testing.T) {
	c, dev := newTestController(TypeLeft)
	defer c.Close()

	assert := assert.New(t)
	assert.NoError(c.Initialize())

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Len(dev.writes, 2)

	enable := dev.writes[0]
	assert.Equal(byte(cmdSubcommand), enable[0])
	assert.Equal(byte(subEnableVibration), enable[subcommandSlot])
	assert.Equal(byte(0x01), enable[subcommandSlot+1])
	// both sides neutral during subcommands
	assert.Equal(neutralRumble[:], enable[leftDataOffset:leftDataOffset+4])
	assert.Equal(neutralRumble[:], enable[rightDataOffset:rightDataOffset+4])

	mode := dev.writes[1]
	assert.Equal(byte(subSetInputMode), mode[subcommandSlot])
	assert.Equal(byte(0x30), mode[subcommandSlot+1])
}

func TestSilenceEncodesZeroAmplitude(t *testing.T) {
	c, dev := newTestController(TypeLeft)
	defer c.Close()

	assert := assert.New(t)
	assert.NoError(c.SendRumble(0, 0, 0))

	buf := dev.lastWrite()
	assert.Equal(byte(0), buf[leftDataOffset+1]) // high-band amplitude
	assert.Equal(byte(0x40), buf[leftDataOffset+3])
}

func TestDisconnectSignalOnReadFailure(t *testing.T) {
	c, dev := newTestController(TypeLeft)
	defer c.Close()

	dev.failReads(errors.New("device vanished"))

	select {
	case err := <-c.Disconnects():
		var devErr *DeviceError
		assert := assert.New(t)
		assert.ErrorAs(err, &devErr)
		assert.Equal(Disconnected, devErr.Kind)
		assert.Equal(model.Disconnected, c.Identity().State)
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect signal")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, dev := newTestController(TypeLeft)

	assert := assert.New(t)
	assert.NoError(c.Close())
	assert.NoError(c.Close())
	assert.True(dev.closed)

	var devErr *DeviceError
	err := c.SendRumble(160, 320, 0.5)
	assert.ErrorAs(err, &devErr)
	assert.Equal(NotConnected, devErr.Kind)
}

func TestTypeForProducts(t *testing.T) {
	cases := []struct {
		product   uint16
		iface     int
		expected  Type
		expectErr bool
	}{
		{ProductJoyConL, 0, TypeLeft, false},
		{ProductJoyConR, 0, TypeRight, false},
		{ProductProController, 0, TypePro, false},
		{ProductChargingGrip, 0, TypeRight, false},
		{ProductChargingGrip, -1, TypeRight, false},
		{ProductChargingGrip, 1, TypeLeft, false},
		{ProductChargingGrip, 2, 0, true},
		{0x1234, 0, 0, true},
	}
	for _, c := range cases {
		kind, err := typeFor(c.product, c.iface)
		if c.expectErr {
			var devErr *DeviceError
			assert.ErrorAs(t, err, &devErr, "product %04x", c.product)
			assert.Equal(t, InvalidDevice, devErr.Kind)
			continue
		}
		assert.NoError(t, err, "product %04x", c.product)
		assert.Equal(t, c.expected, kind, "product %04x", c.product)
	}
}
