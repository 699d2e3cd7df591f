// Package bus gives sensors a fixed-address view of an I2C bus, on Linux
// hosts through periph and on TinyGo boards through the drivers package.
package bus

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"tinygo.org/x/drivers"
)

var ErrClosed = errors.New("bus closed")

// Device is one peripheral on a bus. Every transfer is a single Tx with
// either a write or a read half.
type Device struct {
	name string
	addr uint16
	tx   func(w, r []byte) error

	mu     sync.Mutex
	closer io.Closer
	closed bool
}

// NewTinyGo wraps a TinyGo bus such as machine.I2C0.
func NewTinyGo(b drivers.I2C, addr uint16) *Device {
	return &Device{
		name: "tinygo",
		addr: addr,
		tx: func(w, r []byte) error {
			return b.Tx(addr, w, r)
		},
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("%s@0x%02X", d.name, d.addr)
}

func (d *Device) Addr() uint16 { return d.addr }

func (d *Device) Write(p []byte) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.tx(p, nil); err != nil {
		return fmt.Errorf("write %d bytes to %s: %w", len(p), d, err)
	}
	return nil
}

func (d *Device) Read(n int) ([]byte, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := d.tx(nil, buf); err != nil {
		return nil, fmt.Errorf("read %d bytes from %s: %w", n, d, err)
	}
	return buf, nil
}

// Close releases the bus if Open created it. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

func (d *Device) check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}
