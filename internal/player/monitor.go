package player

import (
	"fmt"
	"time"

	"avplay/internal/metrics"
)

type monitor struct {
	stop chan struct{}
	done chan struct{}

	// inCallback is set while the track-end callback runs. Guarded by the
	// controller mutex.
	inCallback bool
}

// startMonitorLocked launches the monitor goroutine unless one is running.
func (c *Controller) startMonitorLocked() {
	if c.mon != nil || c.released {
		return
	}
	m := &monitor{stop: make(chan struct{}), done: make(chan struct{})}
	c.mon = m
	go c.run(m)
}

// detachMonitorLocked signals the running monitor to exit and returns it so
// the caller can join it after releasing the mutex.
func (c *Controller) detachMonitorLocked() *monitor {
	m := c.mon
	if m == nil {
		return nil
	}
	c.mon = nil
	close(m.stop)
	return m
}

// join waits for m to exit. A monitor that is inside the track-end callback
// is not waited on, since the callback may be the caller; it exits on its own
// once the callback returns.
func (c *Controller) join(m *monitor) {
	if m == nil {
		return
	}
	c.mu.Lock()
	busy := m.inCallback
	c.mu.Unlock()
	if busy {
		return
	}
	select {
	case <-m.done:
	case <-time.After(c.stopTimeout):
		logger.Warn("Monitor loop did not exit within %v", c.stopTimeout)
	}
}

func (c *Controller) run(m *monitor) {
	metrics.ControllerMonitorRunning.Inc()
	defer metrics.ControllerMonitorRunning.Dec()
	defer close(m.done)

	logger.Debug("Monitor loop started")
	for {
		wait := c.pollInterval
		if err := c.poll(m); err != nil {
			metrics.ControllerPollErrors.Inc()
			logger.Debug("Monitor poll failed: %v", err)
			wait = c.errorBackoff
		}
		if !sleep(m, wait) {
			logger.Debug("Monitor loop stopped")
			return
		}
	}
}

// poll runs one monitor cycle. Panics from the backend or the track-end
// callback are returned as errors so the loop keeps going.
func (c *Controller) poll(m *monitor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in monitor cycle: %v", r)
		}
	}()

	c.mu.Lock()
	gen, state, ended, released := c.gen, c.state, c.endedGen, c.released
	c.mu.Unlock()
	if released {
		return nil
	}

	backendState, err := c.backend.PlaybackState()
	if err != nil {
		return err
	}

	switch backendState {
	case PlaybackPlaying:
		c.mu.Lock()
		if c.gen == gen && c.state != StateFinished {
			c.setStateLocked(StatePlaying)
		}
		c.mu.Unlock()

		if ended == gen {
			return nil
		}
		pos, err := c.backend.Position()
		if err != nil {
			return err
		}
		length, err := c.backend.Length()
		if err != nil {
			return err
		}
		if length <= 0 || pos < length-1 {
			return nil
		}
		return c.trackEnded(m, gen)

	case PlaybackStopped, PlaybackNothing:
		if state != StatePlaying {
			return nil
		}
		metrics.ControllerUnexpectedStopsTotal.Inc()
		return c.advanceFrom(gen)
	}
	return nil
}

func (c *Controller) trackEnded(m *monitor, gen uint64) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.endedGen = gen
	index, callback := c.index, c.onTrackEnd
	c.mu.Unlock()

	metrics.ControllerTrackEndsTotal.Inc()
	if callback != nil {
		c.runCallback(m, callback, index)
	}
	if !sleep(m, c.settleDelay) {
		return nil
	}
	return c.advanceFrom(gen)
}

func (c *Controller) runCallback(m *monitor, fn TrackEndFunc, index int) {
	c.mu.Lock()
	m.inCallback = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		m.inCallback = false
		c.mu.Unlock()
	}()
	fn(index)
}

// sleep waits for d or until the monitor is stopped. It reports false when
// stopped.
func sleep(m *monitor, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-m.stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.stop:
		return false
	case <-t.C:
		return true
	}
}
