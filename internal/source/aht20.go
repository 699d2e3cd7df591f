package source

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cloudpico-telemetry/internal/codec"
)

const (
	AHT20Address = 0x38

	cmdSoftReset = 0xBA
	cmdCalibrate = 0xBE
	cmdTrigger   = 0xAC

	ResetDelay     = 20 * time.Millisecond
	CalibrateDelay = 100 * time.Millisecond
	MeasureDelay   = 300 * time.Millisecond
)

// BusTransport is a two-wire device at a fixed address. Timeouts are
// configured on the bus itself.
type BusTransport interface {
	Write(p []byte) error
	Read(n int) ([]byte, error)
}

// BusError reports a failed step of the acquisition sequence. The caller
// skips the tick; nothing is retried here.
type BusError struct {
	Step string
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s: %v", e.Step, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// AHT20 reads temperature and humidity with the reset, calibrate, trigger,
// read sequence. The waits are blocking sleeps: the device needs them and
// a second acquisition must not start on the bus meanwhile.
type AHT20 struct {
	mu    sync.Mutex
	bus   BusTransport
	sleep func(time.Duration)
}

type AHT20Option func(*AHT20)

// WithSleep replaces time.Sleep between the command steps.
func WithSleep(sleep func(time.Duration)) AHT20Option {
	return func(s *AHT20) { s.sleep = sleep }
}

func NewAHT20(bus BusTransport, opts ...AHT20Option) *AHT20 {
	s := &AHT20{bus: bus, sleep: time.Sleep}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AHT20) Sample() (codec.EnvironmentalReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := []struct {
		name  string
		cmd   []byte
		delay time.Duration
	}{
		{name: "reset", cmd: []byte{cmdSoftReset}, delay: ResetDelay},
		{name: "calibrate", cmd: []byte{cmdCalibrate, 0x08, 0x00}, delay: CalibrateDelay},
		{name: "trigger", cmd: []byte{cmdTrigger, 0x33, 0x00}, delay: MeasureDelay},
	}
	for _, step := range steps {
		if err := s.bus.Write(step.cmd); err != nil {
			return codec.EnvironmentalReading{}, &BusError{Step: step.name, Err: err}
		}
		s.sleep(step.delay)
	}

	data, err := s.bus.Read(codec.RawFrameLen)
	if err != nil {
		return codec.EnvironmentalReading{}, &BusError{Step: "read", Err: err}
	}
	raw, err := codec.ParseRawFrame(data)
	if err != nil {
		return codec.EnvironmentalReading{}, &BusError{Step: "read", Err: err}
	}
	return codec.DecodeEnvironmental(raw), nil
}

// IsBusError reports whether err came from the two-wire bus.
func IsBusError(err error) bool {
	var be *BusError
	return errors.As(err, &be)
}
