// Package indicator drives the presence output that follows the
// connection state, usually an LED.
package indicator

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO drives a digital output pin. Output errors are logged; the caller
// has nothing useful to do with them.
type GPIO struct {
	pin    gpio.PinOut
	logger *slog.Logger
}

func NewGPIO(pin gpio.PinOut, logger *slog.Logger) *GPIO {
	if logger == nil {
		logger = slog.Default()
	}
	return &GPIO{pin: pin, logger: logger.With("pin", pin.Name())}
}

// ByName looks the pin up in the periph registry ("GPIO4", "LED0", ...).
func ByName(name string, logger *slog.Logger) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return NewGPIO(pin, logger), nil
}

func (g *GPIO) Set(on bool) {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := g.pin.Out(level); err != nil {
		g.logger.Error("set presence output", "level", level.String(), "error", err)
		return
	}
	g.logger.Debug("presence output", "level", level.String())
}

// Log stands in for a missing output pin.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Set(on bool) {
	l.logger.Info("presence", "on", on)
}
