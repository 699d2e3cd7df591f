package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloudpico-telemetry/internal/config"
	"cloudpico-telemetry/internal/httpapi"
	"cloudpico-telemetry/internal/indicator"
	"cloudpico-telemetry/internal/publisher"
)

// service is the part of a publisher the run loop needs.
type service interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() publisher.Snapshot
}

// runService starts svc, makes the transport discoverable and blocks until
// ctx is done. The status endpoint runs alongside when statusAddr is set.
func runService(ctx context.Context, logger *slog.Logger, statusAddr string, svc service, begin func() error) error {
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start publisher: %w", err)
	}
	defer svc.Stop()

	if begin != nil {
		if err := begin(); err != nil {
			return fmt.Errorf("begin discovery: %w", err)
		}
	}

	if statusAddr == "" {
		<-ctx.Done()
		return nil
	}
	srv := httpapi.NewServer(statusAddr, logger, svc)
	return httpapi.Serve(ctx, srv, logger)
}

// presenceIndicator drives LED_PIN when set, otherwise logs transitions.
func presenceIndicator(cfg config.Config, logger *slog.Logger) publisher.PresenceIndicator {
	if cfg.LEDPin == "" {
		return indicator.NewLog(logger)
	}
	led, err := indicator.ByName(cfg.LEDPin, logger)
	if err != nil {
		logger.Warn("presence led unavailable; logging transitions instead",
			"pin", cfg.LEDPin,
			"error", err,
		)
		return indicator.NewLog(logger)
	}
	return led
}
