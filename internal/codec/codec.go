// Package codec translates between raw transport bytes and typed readings.
//
// Heart rate characteristic value (3 bytes): contact flag, heart rate uint16 LE.
// Heart rate notify payload (2 bytes): heart rate uint16 LE.
// AHT20 raw frame (6 bytes): status, 20-bit humidity in [1:3] plus the high
// nibble of [3], 20-bit temperature in the low nibble of [3] plus [4:6].
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	RawFrameLen = 6

	// ContactFlagDefault is sent in every heart rate record. It is a fixed
	// value, not a skin-contact reading.
	ContactFlagDefault = 0x06

	BodySensorLocationChest = 0x01

	// 2^20, full scale of the 20-bit sensor fields.
	frameScale = 1 << 20
)

var ErrFrameLength = errors.New("invalid frame length")

// RawFrame is one measurement as read from the sensor.
type RawFrame [RawFrameLen]byte

// HeartRateRecord is the heart rate measurement characteristic value.
type HeartRateRecord struct {
	ContactFlag  uint8
	HeartRateBpm uint16
}

// EnvironmentalReading is a decoded sensor frame. Temperature (°C) and
// Humidity (%RH) are truncated to whole units; the 20-bit frames keep the
// full resolution.
type EnvironmentalReading struct {
	Temperature int16
	Humidity    uint16

	TemperatureFrame uint32
	HumidityFrame    uint32
}

// Celsius returns the temperature at full sensor resolution.
func (r EnvironmentalReading) Celsius() float64 {
	return float64(r.TemperatureFrame)*200/frameScale - 50
}

// RelativeHumidity returns the humidity in percent at full sensor resolution.
func (r EnvironmentalReading) RelativeHumidity() float64 {
	return float64(r.HumidityFrame) * 100 / frameScale
}

// ParseRawFrame copies b into a RawFrame. Anything but exactly RawFrameLen
// bytes is rejected so partial reads never get decoded.
func ParseRawFrame(b []byte) (RawFrame, error) {
	var f RawFrame
	if len(b) != RawFrameLen {
		return f, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameLength, len(b), RawFrameLen)
	}
	copy(f[:], b)
	return f, nil
}

// DecodeEnvironmental extracts humidity and temperature from a raw frame.
func DecodeEnvironmental(raw RawFrame) EnvironmentalReading {
	humidityFrame := uint32(raw[1])<<12 | uint32(raw[2])<<4 | uint32(raw[3])>>4
	temperatureFrame := uint32(raw[3]&0x0F)<<16 | uint32(raw[4])<<8 | uint32(raw[5])

	humidity := uint64(humidityFrame) * 100 / frameScale
	// (frame*200 - 50*2^20) / 2^20, truncated toward zero like the float form.
	temperature := (int64(temperatureFrame)*200 - 50*frameScale) / frameScale

	return EnvironmentalReading{
		Temperature:      int16(temperature),
		Humidity:         uint16(humidity),
		TemperatureFrame: temperatureFrame,
		HumidityFrame:    humidityFrame,
	}
}

// EncodeHeartRate packs the full characteristic value.
func EncodeHeartRate(r HeartRateRecord) [3]byte {
	var b [3]byte
	b[0] = r.ContactFlag
	binary.LittleEndian.PutUint16(b[1:3], r.HeartRateBpm)
	return b
}

// EncodeHeartRateValueOnly packs the notify payload, which carries only the rate.
func EncodeHeartRateValueOnly(bpm uint16) [2]byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], bpm)
	return b
}

func EncodeBodySensorLocation() [1]byte {
	return [1]byte{BodySensorLocationChest}
}

// EncodeEnvironmental packs a reading as temperature int16 LE, humidity uint16 LE.
func EncodeEnvironmental(r EnvironmentalReading) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Temperature))
	binary.LittleEndian.PutUint16(b[2:4], r.Humidity)
	return b
}
