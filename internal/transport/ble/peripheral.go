// Package ble exposes heart rate readings as a GATT peripheral.
package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"cloudpico-telemetry/internal/codec"
	"cloudpico-telemetry/internal/publisher"
	"cloudpico-telemetry/internal/utils"
)

var ErrShortWrite = errors.New("short characteristic write")

type advertiser interface {
	Start() error
	Stop() error
}

type characteristic interface {
	Write(p []byte) (n int, err error)
}

type Options struct {
	LocalName string
	Logger    *slog.Logger

	// OnEvent receives connect and disconnect notifications from the stack.
	OnEvent func(publisher.Event)
}

// Peripheral serves the Heart Rate service and pushes measurements to
// subscribed centrals.
type Peripheral struct {
	adv         advertiser
	measurement characteristic
	logger      *slog.Logger

	mu          sync.Mutex
	onEvent     func(publisher.Event)
	advertising bool
}

// HeartRateService describes service 0x180D. The measurement value starts
// as the full record so a read before the first notify returns three bytes.
func HeartRateService(measurement, location *bluetooth.Characteristic) *bluetooth.Service {
	initial := codec.EncodeHeartRate(codec.HeartRateRecord{ContactFlag: codec.ContactFlagDefault})
	loc := codec.EncodeBodySensorLocation()

	return &bluetooth.Service{
		UUID: bluetooth.ServiceUUIDHeartRate,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: measurement,
				UUID:   bluetooth.CharacteristicUUIDHeartRateMeasurement,
				Value:  initial[:],
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
			{
				Handle: location,
				UUID:   bluetooth.CharacteristicUUIDBodySensorLocation,
				Value:  loc[:],
				Flags:  bluetooth.CharacteristicReadPermission,
			},
		},
	}
}

// NewPeripheral enables the adapter, registers the service and configures
// advertising. Advertising itself starts with BeginDiscovery.
func NewPeripheral(adapter *bluetooth.Adapter, o Options) (*Peripheral, error) {
	p := newPeripheral(nil, nil, o)

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		p.handleConnect(device.Address.String(), connected)
	})

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable ble adapter: %w", err)
	}

	var measurement, location bluetooth.Characteristic
	if err := adapter.AddService(HeartRateService(&measurement, &location)); err != nil {
		return nil, fmt.Errorf("add heart rate service: %w", err)
	}

	adv := adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    o.LocalName,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.ServiceUUIDHeartRate},
	}); err != nil {
		return nil, fmt.Errorf("configure advertisement: %w", err)
	}

	p.adv = adv
	p.measurement = &measurement
	p.logger.Info("heart rate service registered",
		"service", utils.UUID16(0x180D),
		"local_name", o.LocalName,
	)
	return p, nil
}

func newPeripheral(adv advertiser, measurement characteristic, o Options) *Peripheral {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Peripheral{
		adv:         adv,
		measurement: measurement,
		logger:      logger,
		onEvent:     o.OnEvent,
	}
}

// SetEventHandler replaces the OnEvent callback.
func (p *Peripheral) SetEventHandler(fn func(publisher.Event)) {
	p.mu.Lock()
	p.onEvent = fn
	p.mu.Unlock()
}

// Send updates the measurement value, which notifies subscribed centrals.
func (p *Peripheral) Send(frame []byte) error {
	n, err := p.measurement.Write(frame)
	if err != nil {
		return fmt.Errorf("write heart rate measurement: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(frame))
	}
	return nil
}

// BeginDiscovery (re)starts advertising.
func (p *Peripheral) BeginDiscovery() error {
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	p.mu.Lock()
	p.advertising = true
	p.mu.Unlock()
	p.logger.Info("advertising")
	return nil
}

// Close stops advertising.
func (p *Peripheral) Close() error {
	p.mu.Lock()
	if !p.advertising {
		p.mu.Unlock()
		return nil
	}
	p.advertising = false
	p.mu.Unlock()

	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("stop advertising: %w", err)
	}
	return nil
}

func (p *Peripheral) handleConnect(addr string, connected bool) {
	p.mu.Lock()
	fn := p.onEvent
	if connected {
		// Most stacks stop advertising once a central connects.
		p.advertising = false
	}
	p.mu.Unlock()

	if connected {
		p.logger.Info("central connected", "address", addr)
	} else {
		p.logger.Info("central disconnected", "address", addr)
	}

	if fn == nil {
		return
	}
	if connected {
		fn(publisher.Connected{})
	} else {
		fn(publisher.Disconnected{})
	}
}
