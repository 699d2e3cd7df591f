package source

import (
	"math/rand/v2"
	"sync"
	"time"

	"cloudpico-telemetry/internal/codec"
)

// Generator is the random source behind RandomHeartRate. *rand.Rand
// satisfies it; tests plug in a fixed sequence.
type Generator interface {
	Uint32() uint32
}

// RandomHeartRate produces heart rate records with a random rate and the
// fixed contact flag. It stands in for a real heart rate sensor.
type RandomHeartRate struct {
	mu  sync.Mutex
	gen Generator
}

// NewRandomHeartRate uses gen, or a time-seeded PCG when gen is nil.
// The generator is not meant to be cryptographically strong.
func NewRandomHeartRate(gen Generator) *RandomHeartRate {
	if gen == nil {
		seed := uint64(time.Now().UnixNano())
		gen = rand.New(rand.NewPCG(seed, seed>>32|1))
	}
	return &RandomHeartRate{gen: gen}
}

func (s *RandomHeartRate) Sample() (codec.HeartRateRecord, error) {
	s.mu.Lock()
	bpm := uint16(s.gen.Uint32())
	s.mu.Unlock()

	return codec.HeartRateRecord{
		ContactFlag:  codec.ContactFlagDefault,
		HeartRateBpm: bpm,
	}, nil
}
