package audio

import (
	"sync"
	"time"
)

// ClockTransport is a Transport with no audio behind it: a pausable monotonic
// clock. Takes saved without a backing wav still replay against it, so the
// player loop never needs to care whether sound exists.
type ClockTransport struct {
	mu       sync.Mutex
	playing  bool
	base     time.Duration // accumulated position while paused
	resumed  time.Time
	duration time.Duration
}

// NewClock creates a paused clock that reports the given total duration.
func NewClock(duration time.Duration) *ClockTransport {
	return &ClockTransport{duration: duration}
}

func (c *ClockTransport) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.playing = true
	c.resumed = time.Now()
}

func (c *ClockTransport) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.base = c.positionLocked()
	c.playing = false
}

func (c *ClockTransport) Seek(to time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if to < 0 {
		to = 0
	}
	c.base = to
	c.resumed = time.Now()
	return nil
}

func (c *ClockTransport) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	// The clock stops itself at the end so playback sessions terminate.
	return c.playing && c.positionLocked() <= c.duration
}

func (c *ClockTransport) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *ClockTransport) Duration() (time.Duration, bool) {
	return c.duration, true
}

func (c *ClockTransport) positionLocked() time.Duration {
	if !c.playing {
		return c.base
	}
	return c.base + time.Since(c.resumed)
}
