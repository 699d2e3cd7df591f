// Package mqtt delivers encoded samples to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cloudpico-telemetry/internal/publisher"
)

const publishTimeout = 5 * time.Second

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("client stopped")
)

// pahoClient is the subset of mqtt.Client used here.
type pahoClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

type Options struct {
	Broker    string
	Port      int
	ClientID  string
	StationID string
	QoS       byte
	Logger    *slog.Logger

	// OnEvent receives link state changes. It is called from paho's
	// callback goroutines.
	OnEvent func(publisher.Event)
}

type Client struct {
	client    pahoClient
	opts      Options
	topic     string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	onEvent   func(publisher.Event)

	autoReconnect bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func TelemetryTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/telemetry", stationID)
}

func NewClient(o Options) (*Client, error) {
	if o.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if o.StationID == "" {
		return nil, errors.New("station id is required")
	}
	if o.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", o.QoS)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	c := newClient(nil, o)
	c.autoReconnect = true

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", o.Broker, o.Port))
	opts.SetClientID(o.ClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { c.handleConnectionLost(err) })
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		c.logger.Debug("mqtt reconnecting", "broker", o.Broker)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

func newClient(pc pahoClient, o Options) *Client {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Client{
		client:  pc,
		opts:    o,
		topic:   TelemetryTopic(o.StationID),
		logger:  o.Logger,
		onEvent: o.OnEvent,
		stopCh:  make(chan struct{}),
	}
}

// SetEventHandler replaces the OnEvent callback. Call before Connect.
func (c *Client) SetEventHandler(fn func(publisher.Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

func (c *Client) Topic() string { return c.topic }

// Connect establishes connection to the MQTT broker.
// It waits for the initial connection and respects ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) paho keeps retrying internally.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
}

// Send publishes one encoded sample to the station telemetry topic.
func (c *Client) Send(payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(c.topic, c.opts.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", c.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}

	c.logger.Debug("published telemetry", "topic", c.topic, "bytes", len(payload))
	return nil
}

// BeginDiscovery re-establishes the broker link. With auto-reconnect paho
// is already doing that, so it only starts a new attempt when auto-reconnect
// is off.
func (c *Client) BeginDiscovery() error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}
	if c.autoReconnect || c.client.IsConnected() {
		return nil
	}
	c.logger.Info("mqtt reconnecting", "broker", c.opts.Broker)
	c.client.Connect()
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent; after Disconnect, Connect returns ErrStopped.
func (c *Client) Disconnect() {
	first := false
	c.stopOnce.Do(func() {
		close(c.stopCh)
		first = true
	})
	if !first {
		return
	}

	// Paho Disconnect quiesces in-flight work for the given ms.
	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) handleConnect() {
	c.setConnected(true)
	c.logger.Info("mqtt connected", "broker", c.opts.Broker, "port", c.opts.Port)
	c.emit(publisher.Connected{})
}

func (c *Client) handleConnectionLost(err error) {
	c.setConnected(false)
	c.logger.Warn("mqtt connection lost", "error", err)
	c.emit(publisher.Disconnected{})
}

func (c *Client) emit(ev publisher.Event) {
	c.mu.RLock()
	fn := c.onEvent
	c.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
