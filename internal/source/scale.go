package source

import (
	"math"

	"cloudpico-telemetry/internal/codec"
)

// readingFrom maps physical units onto the 20-bit frame scale of the AHT20
// so every environmental source encodes identically.
func readingFrom(celsius, humidity float64) codec.EnvironmentalReading {
	celsius = clamp(celsius, -50, 150)
	humidity = clamp(humidity, 0, 100)

	return codec.EnvironmentalReading{
		Temperature:      int16(celsius),
		Humidity:         uint16(humidity),
		TemperatureFrame: toFrame((celsius + 50) / 200),
		HumidityFrame:    toFrame(humidity / 100),
	}
}

// toFrame maps a 0..1 fraction onto the 20-bit sensor scale.
func toFrame(fraction float64) uint32 {
	const full = 1<<20 - 1
	return uint32(math.Min(math.Round(fraction*(1<<20)), full))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
