package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	next  uint16
	err   error
}

func (s *fakeSource) Sample() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	s.next++
	return s.next, nil
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func encodeUint16(v uint16) ([]byte, error) {
	return []byte{byte(v), byte(v >> 8)}, nil
}

type fakeTransport struct {
	mu          sync.Mutex
	sent        [][]byte
	sendErr     error
	discoveries int
	discoverErr error
}

func (t *fakeTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, append([]byte(nil), frame...))
	return nil
}

func (t *fakeTransport) BeginDiscovery() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discoveries++
	return t.discoverErr
}

func (t *fakeTransport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sent...)
}

func (t *fakeTransport) Discoveries() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.discoveries
}

type fakeIndicator struct {
	mu    sync.Mutex
	calls []bool
}

func (i *fakeIndicator) Set(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, on)
}

func (i *fakeIndicator) Calls() []bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]bool(nil), i.calls...)
}

// manualTimer records the schedule; tests fire ticks by hand.
type manualTimer struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	stopped  bool
}

func (m *manualTimer) Schedule(interval time.Duration, fn func()) TimerHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = interval
	m.fn = fn
	m.stopped = false
	return m
}

func (m *manualTimer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *manualTimer) Fire() {
	m.mu.Lock()
	fn, stopped := m.fn, m.stopped
	m.mu.Unlock()
	if fn != nil && !stopped {
		fn()
	}
}

func (m *manualTimer) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(_ string) slog.Handler { return h }

func (h *captureHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Message == msg {
			n++
		}
	}
	return n
}

var errLinkDown = errors.New("link down")
