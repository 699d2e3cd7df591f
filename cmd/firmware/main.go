//go:build tinygo

// Firmware for a Pico W class board: heart rate peripheral over BLE with the
// on-board LED as presence indicator, plus an AHT20 on I2C0 whose compact
// frames are written to the USB serial console. A BME280 on the same bus
// is used instead when one answers.
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"tinygo.org/x/bluetooth"

	"cloudpico-telemetry/internal/bus"
	"cloudpico-telemetry/internal/codec"
	"cloudpico-telemetry/internal/publisher"
	"cloudpico-telemetry/internal/source"
	"cloudpico-telemetry/internal/telemetry"
	"cloudpico-telemetry/internal/transport/ble"
	"cloudpico-telemetry/internal/utils"
)

const (
	heartRateInterval = 1000 * time.Millisecond
	envInterval       = 10000 * time.Millisecond
	localName         = "cloudpico-hr"
)

// serialTransport writes each frame as one hex line on the console.
type serialTransport struct{}

func (serialTransport) Send(frame []byte) error {
	_, err := machine.Serial.Write([]byte("env " + utils.Frame(frame) + "\r\n"))
	return err
}

func (serialTransport) BeginDiscovery() error { return nil }

func halt(logger *slog.Logger, msg string, err error) {
	for {
		logger.Error(msg, "error", err)
		time.Sleep(time.Second)
	}
}

func main() {
	machine.Serial.Configure(machine.UARTConfig{})
	// Give the host time to enumerate the USB serial device.
	time.Sleep(1500 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("boot", "app", "cloudpico-firmware")

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Set(false)

	peripheral, err := ble.NewPeripheral(bluetooth.DefaultAdapter, ble.Options{
		LocalName: localName,
		Logger:    logger,
	})
	if err != nil {
		halt(logger, "ble init failed", err)
	}

	heartRate, err := publisher.New(publisher.Options[codec.HeartRateRecord]{
		Name:     "heart-rate",
		Interval: heartRateInterval,
		Source:   source.NewRandomHeartRate(nil),
		Encode: func(r codec.HeartRateRecord) ([]byte, error) {
			b := codec.EncodeHeartRateValueOnly(r.HeartRateBpm)
			return b[:], nil
		},
		Transport: peripheral,
		Indicator: led,
		Logger:    logger,
	})
	if err != nil {
		halt(logger, "heart rate publisher", err)
	}
	peripheral.SetEventHandler(heartRate.HandleTransportEvent)

	ctx := context.Background()
	if err := heartRate.Start(ctx); err != nil {
		halt(logger, "heart rate start", err)
	}
	if err := peripheral.BeginDiscovery(); err != nil {
		halt(logger, "advertising", err)
	}

	if err := machine.I2C0.Configure(machine.I2CConfig{}); err != nil {
		logger.Warn("i2c0 unavailable; environmental sampling disabled", "error", err)
	} else {
		var envSource publisher.SampleSource[codec.EnvironmentalReading]
		if bme, err := source.NewBME280(machine.I2C0); err == nil {
			logger.Info("using bme280")
			envSource = bme
		} else {
			envSource = source.NewAHT20(bus.NewTinyGo(machine.I2C0, source.AHT20Address))
		}

		env, err := publisher.New(publisher.Options[codec.EnvironmentalReading]{
			Name:      "environmental",
			Interval:  envInterval,
			Source:    envSource,
			Encode:    telemetry.EncodeBinary,
			Transport: serialTransport{},
			Logger:    logger,
		})
		if err != nil {
			halt(logger, "environmental publisher", err)
		}
		if err := env.Start(ctx); err != nil {
			halt(logger, "environmental start", err)
		}
	}

	select {}
}
