//go:build !tinygo

package source

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"cloudpico-telemetry/internal/codec"
)

const BME280Address = 0x76

// sensor is the part of *bmxx80.Dev used here.
type sensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// BME280 is an environmental source backed by a Bosch BME280, for boards
// fitted with one instead of an AHT20. Readings are mapped onto the same
// 20-bit frame scale so both variants encode identically.
type BME280 struct {
	mu  sync.Mutex
	dev sensor
}

func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80.NewI2C: %w", err)
	}
	return &BME280{dev: dev}, nil
}

func (s *BME280) Sample() (codec.EnvironmentalReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return codec.EnvironmentalReading{}, &BusError{Step: "sense", Err: err}
	}
	return readingFromEnv(env), nil
}

func (s *BME280) Halt() error {
	return s.dev.Halt()
}

func readingFromEnv(env physic.Env) codec.EnvironmentalReading {
	// env.Humidity is stored at a precision of 0.00001 %rH.
	return readingFrom(env.Temperature.Celsius(), float64(env.Humidity)/float64(physic.PercentRH))
}
