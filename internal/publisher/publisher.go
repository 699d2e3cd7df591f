// Package publisher drives the sample, encode, deliver cycle on a fixed
// interval and tracks the transport connection state.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloudpico-telemetry/internal/utils"
)

// SampleSource produces one reading per call.
type SampleSource[T any] interface {
	Sample() (T, error)
}

// EncodeFunc turns a reading into the frame handed to the transport.
type EncodeFunc[T any] func(T) ([]byte, error)

// Transport delivers frames and can be asked to become discoverable again.
type Transport interface {
	Send(frame []byte) error
	BeginDiscovery() error
}

// PresenceIndicator is a binary output that follows the connection state.
type PresenceIndicator interface {
	Set(on bool)
}

type State int

const (
	StateIdle State = iota
	StateAdvertising
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAdvertising:
		return "advertising"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PublisherContext holds the capability handles a publisher works with.
// It is filled by whoever starts the process and owned by the publisher.
type PublisherContext struct {
	Transport Transport
	Indicator PresenceIndicator
	Timer     TimerService

	handle    TimerHandle
	stopAfter func() bool
}

type Options[T any] struct {
	Name      string
	Interval  time.Duration
	Source    SampleSource[T]
	Encode    EncodeFunc[T]
	Transport Transport
	Indicator PresenceIndicator
	Timer     TimerService
	Logger    *slog.Logger

	// GateOnConnection drops frames while no peer is connected. Off by
	// default: every tick is delivered whatever the connection state.
	GateOnConnection bool
}

// Stats counts what happened on the ticks so far.
type Stats struct {
	Ticks          uint64 `json:"ticks"`
	SampleFailures uint64 `json:"sample_failures"`
	EncodeFailures uint64 `json:"encode_failures"`
	Delivered      uint64 `json:"delivered"`
	SendFailures   uint64 `json:"send_failures"`
	Gated          uint64 `json:"gated"`
	LastError      string `json:"last_error,omitempty"`
}

// Snapshot is a point-in-time view of a publisher.
type Snapshot struct {
	Name             string        `json:"name"`
	State            string        `json:"state"`
	Interval         time.Duration `json:"interval_ns"`
	GateOnConnection bool          `json:"gate_on_connection"`
	Stats            Stats         `json:"stats"`
}

type Publisher[T any] struct {
	name     string
	interval time.Duration
	source   SampleSource[T]
	encode   EncodeFunc[T]
	gate     bool
	logger   *slog.Logger

	tickMu sync.Mutex

	mu        sync.Mutex
	pctx      PublisherContext
	running   bool
	connected bool
	stats     Stats
}

func New[T any](opts Options[T]) (*Publisher[T], error) {
	if opts.Interval <= 0 {
		return nil, &ConfigurationError{Field: "interval", Reason: fmt.Sprintf("must be positive, got %v", opts.Interval)}
	}
	if opts.Source == nil {
		return nil, &ConfigurationError{Field: "source", Reason: "is required"}
	}
	if opts.Encode == nil {
		return nil, &ConfigurationError{Field: "encode", Reason: "is required"}
	}
	if opts.Transport == nil {
		return nil, &ConfigurationError{Field: "transport", Reason: "is required"}
	}

	name := opts.Name
	if name == "" {
		name = "publisher"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}
	timer := opts.Timer
	if timer == nil {
		timer = TickerService{}
	}

	return &Publisher[T]{
		name:     name,
		interval: opts.Interval,
		source:   opts.Source,
		encode:   opts.Encode,
		gate:     opts.GateOnConnection,
		logger:   logger.With("publisher", name),
		pctx: PublisherContext{
			Transport: opts.Transport,
			Indicator: indicator,
			Timer:     timer,
		},
	}, nil
}

func (p *Publisher[T]) Name() string { return p.name }

// Start schedules the periodic tick right away; ticks fire whether or not a
// peer is connected. The schedule is stopped by Stop or when ctx is done.
func (p *Publisher[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyStarted
	}
	p.running = true
	p.pctx.handle = p.pctx.Timer.Schedule(p.interval, p.OnTick)
	p.pctx.stopAfter = context.AfterFunc(ctx, p.Stop)

	p.logger.Info("publisher started",
		"interval", p.interval,
		"gate_on_connection", p.gate,
	)
	return nil
}

// Stop cancels the schedule and returns the publisher to idle. Safe to call
// more than once.
func (p *Publisher[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	handle := p.pctx.handle
	stopAfter := p.pctx.stopAfter
	p.pctx.handle = nil
	p.pctx.stopAfter = nil
	p.mu.Unlock()

	if stopAfter != nil {
		stopAfter()
	}
	// Outside p.mu: an in-flight tick may still need the lock.
	if handle != nil {
		handle.Stop()
	}
	p.logger.Info("publisher stopped")
}

// State reports idle until started, then advertising or connected.
func (p *Publisher[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Publisher[T]) stateLocked() State {
	switch {
	case !p.running:
		return StateIdle
	case p.connected:
		return StateConnected
	default:
		return StateAdvertising
	}
}

func (p *Publisher[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Publisher[T]) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Name:             p.name,
		State:            p.stateLocked().String(),
		Interval:         p.interval,
		GateOnConnection: p.gate,
		Stats:            p.stats,
	}
}

// HandleTransportEvent is the single entry point for transport callbacks.
// It may be called from the transport's own goroutine while a tick runs.
func (p *Publisher[T]) HandleTransportEvent(ev Event) {
	switch e := ev.(type) {
	case Connected:
		p.onConnected()
	case Disconnected:
		p.onDisconnected()
	case Other:
		p.logger.Debug("transport event", "code", fmt.Sprintf("0x%02X", e.Code))
	default:
		p.logger.Debug("unknown transport event", "event", fmt.Sprintf("%T", ev))
	}
}

func (p *Publisher[T]) onConnected() {
	p.mu.Lock()
	if p.connected {
		p.mu.Unlock()
		p.logger.Debug("transport already connected")
		return
	}
	p.connected = true
	indicator := p.pctx.Indicator
	p.mu.Unlock()

	p.logger.Info("transport connected")
	indicator.Set(true)
}

func (p *Publisher[T]) onDisconnected() {
	p.mu.Lock()
	p.connected = false
	indicator := p.pctx.Indicator
	transport := p.pctx.Transport
	p.mu.Unlock()

	p.logger.Info("transport disconnected")
	indicator.Set(false)
	if err := transport.BeginDiscovery(); err != nil {
		p.logger.Error("restart discovery failed", "error", err)
		p.recordError(err)
	}
}

// OnTick samples, encodes and delivers one frame. Errors never leave the
// tick: a failed sample or encode skips it, a failed send is logged.
func (p *Publisher[T]) OnTick() {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	p.update(func(s *Stats) { s.Ticks++ })

	value, err := p.source.Sample()
	if err != nil {
		p.logger.Warn("sample failed, skipping tick", "error", err)
		p.update(func(s *Stats) {
			s.SampleFailures++
			s.LastError = err.Error()
		})
		return
	}

	frame, err := p.encode(value)
	if err != nil {
		p.logger.Warn("encode failed, skipping tick", "error", err)
		p.update(func(s *Stats) {
			s.EncodeFailures++
			s.LastError = err.Error()
		})
		return
	}

	p.mu.Lock()
	state := p.stateLocked()
	transport := p.pctx.Transport
	p.mu.Unlock()

	if p.gate && state != StateConnected {
		p.logger.Debug("not connected, frame dropped", "state", state.String())
		p.update(func(s *Stats) { s.Gated++ })
		return
	}

	if err := transport.Send(frame); err != nil {
		sendErr := &SendError{Publisher: p.name, Frame: frame, Err: err}
		p.logger.Warn("telemetry send failed",
			"error", sendErr,
			"frame", utils.Frame(frame),
			"state", state.String(),
		)
		p.update(func(s *Stats) {
			s.SendFailures++
			s.LastError = sendErr.Error()
		})
		return
	}

	p.update(func(s *Stats) { s.Delivered++ })
	p.logger.Debug("telemetry sent", "frame", utils.Frame(frame), "state", state.String())
}

func (p *Publisher[T]) update(fn func(*Stats)) {
	p.mu.Lock()
	fn(&p.stats)
	p.mu.Unlock()
}

func (p *Publisher[T]) recordError(err error) {
	p.update(func(s *Stats) { s.LastError = err.Error() })
}

type noopIndicator struct{}

func (noopIndicator) Set(bool) {}
