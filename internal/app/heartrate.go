package app

import (
	"context"
	"log/slog"

	"cloudpico-telemetry/internal/codec"
	"cloudpico-telemetry/internal/config"
	"cloudpico-telemetry/internal/publisher"
	"cloudpico-telemetry/internal/source"
	"cloudpico-telemetry/internal/transport/ble"
)

// EncodeHeartRateNotify produces the notify payload, which carries only the
// rate. Reads of the characteristic before the first notify still see the
// full three-byte record.
func EncodeHeartRateNotify(r codec.HeartRateRecord) ([]byte, error) {
	b := codec.EncodeHeartRateValueOnly(r.HeartRateBpm)
	return b[:], nil
}

func RunHeartRate(ctx context.Context, cfg config.Config) error {
	logger := slog.Default().With("program", "heartrate")
	logger.Info("initializing heart rate peripheral",
		"adapter", cfg.BLEAdapter,
		"local_name", cfg.BLEDeviceName,
		"interval", cfg.HeartRateInterval,
	)

	peripheral, err := ble.NewPeripheral(bleAdapter(cfg.BLEAdapter), ble.Options{
		LocalName: cfg.BLEDeviceName,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := peripheral.Close(); err != nil {
			logger.Warn("stop advertising failed", "error", err)
		}
	}()

	led := presenceIndicator(cfg, logger)
	led.Set(false)

	pub, err := publisher.New(publisher.Options[codec.HeartRateRecord]{
		Name:             "heart-rate",
		Interval:         cfg.HeartRateInterval,
		Source:           source.NewRandomHeartRate(nil),
		Encode:           EncodeHeartRateNotify,
		Transport:        peripheral,
		Indicator:        led,
		Logger:           logger,
		GateOnConnection: cfg.GateOnConnection,
	})
	if err != nil {
		return err
	}
	peripheral.SetEventHandler(pub.HandleTransportEvent)

	err = runService(ctx, logger, cfg.StatusAddr, pub, peripheral.BeginDiscovery)
	logger.Info("heart rate peripheral shutting down")
	return err
}
