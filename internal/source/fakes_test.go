package source

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

type busCall struct {
	write []byte
	read  int
}

// fakeBus records every transfer and answers reads from frame.
type fakeBus struct {
	calls    []busCall
	frame    []byte
	failStep int // 1-based index of the call that fails, 0 = never
	err      error
}

func (b *fakeBus) Write(p []byte) error {
	b.calls = append(b.calls, busCall{write: append([]byte(nil), p...)})
	if b.failStep == len(b.calls) {
		return b.err
	}
	return nil
}

func (b *fakeBus) Read(n int) ([]byte, error) {
	b.calls = append(b.calls, busCall{read: n})
	if b.failStep == len(b.calls) {
		return nil, b.err
	}
	out := make([]byte, len(b.frame))
	copy(out, b.frame)
	return out, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.delays = append(r.delays, d)
}

type fakeSensor struct {
	env    physic.Env
	err    error
	halted bool
}

func (s *fakeSensor) Sense(e *physic.Env) error {
	if s.err != nil {
		return s.err
	}
	*e = s.env
	return nil
}

func (s *fakeSensor) Halt() error {
	s.halted = true
	return nil
}

type sequence struct {
	values []uint32
	i      int
}

func (s *sequence) Uint32() uint32 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

var errNack = errors.New("i2c: nack")
