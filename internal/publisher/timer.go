package publisher

import (
	"sync"
	"time"
)

// TimerHandle stops a periodic schedule.
type TimerHandle interface {
	Stop()
}

// TimerService runs fn every interval until the returned handle is stopped.
type TimerService interface {
	Schedule(interval time.Duration, fn func()) TimerHandle
}

// TickerService schedules callbacks on a time.Ticker. Callbacks of one
// schedule run one after another on a single goroutine and never overlap.
type TickerService struct{}

func (TickerService) Schedule(interval time.Duration, fn func()) TimerHandle {
	h := &tickerHandle{
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go h.run(interval, fn)
	return h
}

type tickerHandle struct {
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func (h *tickerHandle) run(interval time.Duration, fn func()) {
	defer close(h.exited)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Stop is idempotent and returns once the callback goroutine has exited,
// so no callback runs after Stop returns.
func (h *tickerHandle) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.exited
}
