package notify

import (
	"context"
	"sync/atomic"
	"time"
)

// pollLoop is one polling cycle bound to a single token.
type pollLoop struct {
	gen      uint64
	token    string
	ctx      context.Context
	cancel   context.CancelFunc
	refresh  chan struct{}
	done     chan struct{}
	inFlight atomic.Bool
}

// Start begins polling with token: one fetch immediately, then one every
// Interval. A different token cancels the running loop, resets the state
// and starts over; the same token is a no-op. An empty token stops.
func (c *Center) Start(token string) {
	if token == "" {
		c.Stop()
		return
	}

	c.mu.Lock()
	if c.loop != nil && c.token == token {
		c.mu.Unlock()
		return
	}
	old := c.loop
	c.gen++
	c.token = token
	c.resetLocked()

	ctx, cancel := context.WithCancel(context.Background())
	l := &pollLoop{
		gen:     c.gen,
		token:   token,
		ctx:     ctx,
		cancel:  cancel,
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.loop = l
	c.mu.Unlock()

	halt(old)
	c.log.WithField("generation", l.gen).Debug("polling started")
	c.publish()

	go c.run(l)
}

// Stop ends polling and resets the state to empty. It returns once the
// loop goroutine has exited; a request still in flight is cancelled and
// its result discarded.
func (c *Center) Stop() {
	c.mu.Lock()
	l := c.loop
	c.loop = nil
	c.token = ""
	c.gen++
	c.resetLocked()
	c.mu.Unlock()

	if l != nil {
		halt(l)
		c.log.WithField("generation", l.gen).Debug("polling stopped")
	}
	c.publish()
}

// Follow polls with src's token and restarts or stops whenever it changes.
// Close detaches from src.
func (c *Center) Follow(src TokenSource) {
	unsubscribe := src.Subscribe(c.Start)

	c.mu.Lock()
	prev := c.unfollow
	c.unfollow = unsubscribe
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
	c.Start(src.Token())
}

// Close detaches from any followed TokenSource and stops polling.
func (c *Center) Close() {
	c.mu.Lock()
	unfollow := c.unfollow
	c.unfollow = nil
	c.mu.Unlock()

	if unfollow != nil {
		unfollow()
	}
	c.Stop()
}

// Refresh asks the running loop for an immediate poll. It reports false
// when nothing is polling, a poll is already in flight, or the previous
// manual refresh was too recent.
func (c *Center) Refresh() bool {
	c.mu.Lock()
	l := c.loop
	c.mu.Unlock()

	if l == nil || l.inFlight.Load() {
		return false
	}
	if !c.limiter.Allow() {
		c.log.Debug("manual refresh rate limited")
		return false
	}

	select {
	case l.refresh <- struct{}{}:
		return true
	default:
		return false
	}
}

func halt(l *pollLoop) {
	if l == nil {
		return
	}
	l.cancel()
	<-l.done
}

// run is the polling loop. Fetches run synchronously, so a tick or
// refresh that arrives during a fetch is dropped instead of starting a
// second, overlapping fetch.
func (c *Center) run(l *pollLoop) {
	defer close(l.done)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	c.poll(l)

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			c.poll(l)
		case <-l.refresh:
			c.poll(l)
		}
		c.skipPending(l, ticker)
	}
}

// skipPending drops ticks and refreshes that queued up while the last
// fetch was running.
func (c *Center) skipPending(l *pollLoop, ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
			c.log.Debug("skipping tick: previous fetch was still in flight")
		case <-l.refresh:
			c.log.Debug("skipping refresh: previous fetch was still in flight")
		default:
			return
		}
	}
}

// poll performs one fetch and applies it if the loop is still current.
func (c *Center) poll(l *pollLoop) {
	l.inFlight.Store(true)
	defer l.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(l.ctx, c.opts.RequestTimeout)
	defer cancel()

	records, err := c.api.ListNotifications(ctx, l.token)
	if err != nil {
		c.mu.Lock()
		if l.gen != c.gen {
			c.mu.Unlock()
			c.log.WithField("op", "poll").Debug("discarding stale poll failure")
			return
		}
		c.lastErr = err.Error()
		c.mu.Unlock()

		c.logFailure("poll", err)
		c.publish()
		return
	}

	c.applyFetch(l.gen, records)
}
