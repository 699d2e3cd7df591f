//go:build tinygo

package source

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/bme280"

	"cloudpico-telemetry/internal/codec"
)

var ErrNotConnected = errors.New("bme280 not connected")

// BME280 reads a Bosch BME280 through the TinyGo driver.
type BME280 struct {
	mu  sync.Mutex
	dev *bme280.Device
}

// NewBME280 configures the sensor on an already configured bus.
func NewBME280(bus drivers.I2C) (*BME280, error) {
	dev := bme280.New(bus)
	if !dev.Connected() {
		return nil, &BusError{Step: "probe", Err: ErrNotConnected}
	}
	dev.Configure()
	return &BME280{dev: &dev}, nil
}

func (s *BME280) Sample() (codec.EnvironmentalReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	milliC, err := s.dev.ReadTemperature()
	if err != nil {
		return codec.EnvironmentalReading{}, &BusError{Step: "temperature", Err: err}
	}
	// Hundredths of a percent.
	rh, err := s.dev.ReadHumidity()
	if err != nil {
		return codec.EnvironmentalReading{}, &BusError{Step: "humidity", Err: err}
	}
	return readingFrom(float64(milliC)/1000, float64(rh)/100), nil
}
