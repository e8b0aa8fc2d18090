package platform

import "time"

// RealClock is a [Clock] backed by the standard library's time package.
type RealClock struct {
	epoch time.Time
	timer *time.Timer
}

// NewRealClock returns a Clock whose NowMillis is relative to its own creation time.
func NewRealClock() *RealClock { return &RealClock{epoch: time.Now()} }

func (c *RealClock) NowMillis() uint32 {
	return uint32(time.Since(c.epoch).Milliseconds())
}

func (c *RealClock) SetTimeout(d time.Duration, fn func()) {
	c.CancelTimeout()
	c.timer = time.AfterFunc(d, fn)
}

func (c *RealClock) CancelTimeout() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
