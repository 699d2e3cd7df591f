package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloudpico-telemetry/internal/bus"
	"cloudpico-telemetry/internal/codec"
	"cloudpico-telemetry/internal/config"
	"cloudpico-telemetry/internal/publisher"
	"cloudpico-telemetry/internal/source"
	"cloudpico-telemetry/internal/telemetry"
	"cloudpico-telemetry/internal/transport/mqtt"
)

func environmentalEncoder(cfg config.Config) (publisher.EncodeFunc[codec.EnvironmentalReading], error) {
	switch cfg.EnvPayload {
	case "", "json":
		return telemetry.NewJSONEncoder(cfg.StationID).Encode, nil
	case "binary":
		return telemetry.EncodeBinary, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q", cfg.EnvPayload)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openEnvSource opens the configured sensor. The returned closer releases
// the sensor and its bus.
func openEnvSource(cfg config.Config) (publisher.SampleSource[codec.EnvironmentalReading], io.Closer, error) {
	switch cfg.EnvSensor {
	case "", "aht20":
		dev, err := bus.Open(cfg.I2CBus, cfg.SensorAddress)
		if err != nil {
			return nil, nil, err
		}
		return source.NewAHT20(dev), dev, nil

	case "bme280":
		b, err := bus.OpenBus(cfg.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		s, err := source.NewBME280(b, cfg.SensorAddress)
		if err != nil {
			_ = b.Close()
			return nil, nil, err
		}
		return s, closerFunc(func() error {
			return errors.Join(s.Halt(), b.Close())
		}), nil

	default:
		return nil, nil, fmt.Errorf("unknown sensor %q", cfg.EnvSensor)
	}
}

func RunEnvironmental(ctx context.Context, cfg config.Config) error {
	logger := slog.Default().With("program", "envmon")
	logger.Info("initializing environmental monitor",
		"sensor", cfg.EnvSensor,
		"sensor_address", fmt.Sprintf("0x%02X", cfg.SensorAddress),
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"payload", cfg.EnvPayload,
		"interval", cfg.EnvInterval,
	)

	encode, err := environmentalEncoder(cfg)
	if err != nil {
		return err
	}

	src, closer, err := openEnvSource(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("release sensor failed", "error", err)
		}
	}()

	client, err := mqtt.NewClient(mqtt.Options{
		Broker:    cfg.MQTTBroker,
		Port:      cfg.MQTTPort,
		ClientID:  cfg.MQTTClientID,
		StationID: cfg.StationID,
		QoS:       cfg.MQTTQoS,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer client.Disconnect()

	pub, err := publisher.New(publisher.Options[codec.EnvironmentalReading]{
		Name:             "environmental",
		Interval:         cfg.EnvInterval,
		Source:           src,
		Encode:           encode,
		Transport:        client,
		Indicator:        presenceIndicator(cfg, logger),
		Logger:           logger,
		GateOnConnection: cfg.GateOnConnection,
	})
	if err != nil {
		return err
	}
	client.SetEventHandler(pub.HandleTransportEvent)

	connect := func() error {
		go func() {
			if err := client.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mqtt connect failed", "error", err)
			}
		}()
		return nil
	}

	err = runService(ctx, logger, cfg.StatusAddr, pub, connect)
	logger.Info("environmental monitor shutting down")
	return err
}
