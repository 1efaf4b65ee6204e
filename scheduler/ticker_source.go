package scheduler

import (
	"sync"
	"time"
)

// TickerSource drives the scheduler from a plain time.Ticker, standing in
// for a real display when none exists yet: headless hosts, and tests.
type TickerSource struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewTickerSource starts a ticker firing every interval.
func NewTickerSource(interval time.Duration) *TickerSource {
	return &TickerSource{ticker: time.NewTicker(interval), stop: make(chan struct{})}
}

// Wait blocks until the next tick, or returns false once Close has run.
func (s *TickerSource) Wait() bool {
	select {
	case <-s.ticker.C:
		// A tick buffered before Close must not count once Close has run.
		select {
		case <-s.stop:
			return false
		default:
			return true
		}
	case <-s.stop:
		return false
	}
}

// Close stops the ticker and unblocks any pending Wait.
func (s *TickerSource) Close() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.stop)
	})
}
