//go:build !tinygo

package bus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// OpenBus initialises the host drivers and opens the named bus ("" picks
// the first one, usually /dev/i2c-1).
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2creg.Open(%q): %w", name, err)
	}
	return b, nil
}

// Open is OpenBus followed by NewPeriph; closing the Device closes the bus.
func Open(name string, addr uint16) (*Device, error) {
	b, err := OpenBus(name)
	if err != nil {
		return nil, err
	}

	d := NewPeriph(b, addr)
	d.closer = b
	return d, nil
}

// NewPeriph wraps an already opened periph bus. Closing the Device does not
// close b.
func NewPeriph(b i2c.Bus, addr uint16) *Device {
	dev := &i2c.Dev{Bus: b, Addr: addr}
	return &Device{
		name: b.String(),
		addr: addr,
		tx:   dev.Tx,
	}
}
