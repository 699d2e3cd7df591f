// Package telemetry defines the JSON message published for environmental
// readings.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cloudpico-telemetry/internal/codec"
)

// Telemetry represents a telemetry message from a weather station
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`
}

func (t Telemetry) Validate() error {
	if t.StationID == "" {
		return errors.New("station_id is required")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if t.Humidity != nil && (*t.Humidity < 0 || *t.Humidity > 100) {
		return fmt.Errorf("humidity_pct out of range: %f (must be 0-100)", *t.Humidity)
	}
	if t.Temperature == nil && t.Humidity == nil {
		return errors.New("at least one sensor reading (temperature or humidity) is required")
	}
	return nil
}

// FromReading builds a message at full sensor resolution.
func FromReading(stationID string, r codec.EnvironmentalReading, seq int, now time.Time) Telemetry {
	temperature := r.Celsius()
	humidity := r.RelativeHumidity()
	return Telemetry{
		StationID:   stationID,
		Timestamp:   now,
		Temperature: &temperature,
		Humidity:    &humidity,
		Sequence:    &seq,
	}
}

// JSONEncoder numbers and marshals readings for one station.
type JSONEncoder struct {
	stationID string
	now       func() time.Time
	seq       atomic.Int64
}

func NewJSONEncoder(stationID string) *JSONEncoder {
	return &JSONEncoder{stationID: stationID, now: time.Now}
}

func (e *JSONEncoder) Encode(r codec.EnvironmentalReading) ([]byte, error) {
	seq := int(e.seq.Add(1))
	t := FromReading(e.stationID, r, seq, e.now().UTC())
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry: %w", err)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal telemetry: %w", err)
	}
	return data, nil
}

// EncodeBinary is the compact alternative to JSON: see codec.EncodeEnvironmental.
func EncodeBinary(r codec.EnvironmentalReading) ([]byte, error) {
	b := codec.EncodeEnvironmental(r)
	return b[:], nil
}
