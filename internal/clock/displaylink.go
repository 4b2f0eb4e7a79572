// Package clock provides the periodic presentation loop that drives rendering.
//
// A DisplayLink owns a single goroutine, the presentation loop. Tick callbacks
// and posted functions all run on that goroutine, one at a time, so code that
// only ever runs inside them needs no further synchronization.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// TickID identifies one display refresh. It increases monotonically.
type TickID uint64

// Subscription is the handle returned by Subscribe
type Subscription uint64

// Clock delivers ticks to subscribers
type Clock interface {
	Subscribe(fn func(TickID)) Subscription
	Unsubscribe(sub Subscription)
}

// Dispatcher runs functions on the presentation loop
type Dispatcher interface {
	Post(fn func())
}

type subscriber struct {
	id Subscription
	fn func(TickID)
}

// DisplayLink is a ticker-driven Clock and Dispatcher
type DisplayLink struct {
	fps int

	mu      sync.Mutex
	subs    []subscriber
	nextSub Subscription
	tick    TickID

	posted chan func()

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewDisplayLink creates a display link refreshing at fps (10 if fps <= 0)
func NewDisplayLink(fps int) *DisplayLink {
	if fps <= 0 {
		fps = 10
	}
	return &DisplayLink{
		fps:    fps,
		posted: make(chan func(), 256),
	}
}

// FPS returns the refresh rate
func (d *DisplayLink) FPS() int {
	return d.fps
}

// Interval returns the time between ticks
func (d *DisplayLink) Interval() time.Duration {
	return time.Second / time.Duration(d.fps)
}

// Subscribe registers fn to be called once per tick on the presentation loop
func (d *DisplayLink) Subscribe(fn func(TickID)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	d.subs = append(d.subs, subscriber{id: d.nextSub, fn: fn})
	return d.nextSub
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (d *DisplayLink) Unsubscribe(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.subs {
		if s.id == sub {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of active subscriptions
func (d *DisplayLink) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// CurrentTick returns the most recently dispatched tick
func (d *DisplayLink) CurrentTick() TickID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tick
}

// Post queues fn to run on the presentation loop. If the queue is full the
// caller blocks until the loop catches up.
func (d *DisplayLink) Post(fn func()) {
	d.posted <- fn
}

// Step advances the tick and calls every subscriber in subscription order.
// The run loop calls it for each ticker fire; tests can call it directly when
// the loop is not running.
func (d *DisplayLink) Step() TickID {
	d.mu.Lock()
	d.tick++
	tick := d.tick
	subs := make([]subscriber, len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, s := range subs {
		if !d.subscribed(s.id) {
			// unsubscribed by an earlier callback in this tick
			continue
		}
		s.fn(tick)
	}
	return tick
}

func (d *DisplayLink) subscribed(id Subscription) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

// RunPending runs every queued posted function without blocking and returns
// how many ran. Used when the loop is driven manually.
func (d *DisplayLink) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-d.posted:
			fn()
			n++
		default:
			return n
		}
	}
}

// Start launches the presentation loop
func (d *DisplayLink) Start(ctx context.Context) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.running {
		return fmt.Errorf("display link already running")
	}

	d.running = true
	d.stopChan = make(chan struct{})
	d.done = make(chan struct{})

	go d.loop(ctx, d.stopChan, d.done)
	return nil
}

// Stop halts the presentation loop and waits for it to exit. Safe to call
// more than once.
func (d *DisplayLink) Stop() {
	d.runMu.Lock()
	if !d.running {
		d.runMu.Unlock()
		return
	}
	d.running = false
	close(d.stopChan)
	done := d.done
	d.runMu.Unlock()

	<-done
}

// IsRunning returns whether the loop is active
func (d *DisplayLink) IsRunning() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.running
}

func (d *DisplayLink) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := d.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithComponent("clock").Info().
		Int("fps", d.fps).
		Dur("interval", interval).
		Msg("Display link started")

	for {
		select {
		case <-ctx.Done():
			d.runMu.Lock()
			d.running = false
			d.runMu.Unlock()
			return
		case <-stop:
			logger.WithComponent("clock").Info().
				Uint64("last_tick", uint64(d.CurrentTick())).
				Msg("Display link stopped")
			return
		case fn := <-d.posted:
			fn()
		case <-ticker.C:
			d.Step()
		}
	}
}
