package capture

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/frostglass/internal/clock"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Snapshot is one captured backdrop frame. It is never mutated after capture;
// consumers must treat Pixels as read-only.
type Snapshot struct {
	Pixels     *image.RGBA
	Scale      float64
	Tick       clock.TickID
	CapturedAt time.Time
	Err        error
}

// Empty reports whether the snapshot carries no pixels (capture failed)
func (s Snapshot) Empty() bool {
	return s.Pixels == nil || s.Pixels.Bounds().Empty()
}

// TickSource reports the current clock tick
type TickSource interface {
	CurrentTick() clock.TickID
}

// CacheStats holds SharedFrameCache counters
type CacheStats struct {
	Tick     clock.TickID `json:"tick"`
	Captures uint64       `json:"captures"`
	Failures uint64       `json:"failures"`
	Hits     uint64       `json:"hits"`
}

// SharedFrameCache holds at most one snapshot, keyed by tick, so every surface
// sampling the backdrop during one tick shares a single capture.
type SharedFrameCache struct {
	capturer Capturer
	ticks    TickSource

	mu       sync.Mutex
	slot     Snapshot
	hasSlot  bool
	captures uint64
	failures uint64
	hits     uint64

	failing logger.Occurrence
}

// NewSharedFrameCache creates a cache capturing through c
func NewSharedFrameCache(c Capturer, ticks TickSource) *SharedFrameCache {
	return &SharedFrameCache{
		capturer: c,
		ticks:    ticks,
	}
}

// CurrentTick returns the clock's current tick
func (c *SharedFrameCache) CurrentTick() clock.TickID {
	if c.ticks == nil {
		return 0
	}
	return c.ticks.CurrentTick()
}

// SnapshotFor returns the snapshot for tick, capturing src at scale if this is
// the first request in the tick. Later requests in the same tick get the same
// snapshot whatever scale they ask for.
//
// A failed capture is cached for the tick too and comes back as an empty
// Snapshot.
func (c *SharedFrameCache) SnapshotFor(tick clock.TickID, src Source, scale float64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasSlot && c.slot.Tick == tick {
		c.hits++
		return c.slot
	}

	snap := c.capture(tick, src, scale)
	c.slot = snap
	c.hasSlot = true
	return snap
}

// capture runs to completion before the snapshot is published. Caller holds mu.
func (c *SharedFrameCache) capture(tick clock.TickID, src Source, scale float64) Snapshot {
	log := logger.WithComponent("frame-cache")
	snap := Snapshot{Scale: scale, Tick: tick, CapturedAt: time.Now()}

	c.captures++

	size := TargetSize(src.Bounds(), scale)
	if size == (image.Point{}) {
		snap.Err = ErrCaptureUnavailable
	} else {
		pixels, err := c.capturer.Capture(src, size)
		switch {
		case err != nil:
			snap.Err = err
		case pixels == nil || pixels.Bounds().Empty():
			snap.Err = ErrCaptureUnavailable
		default:
			snap.Pixels = pixels
		}
	}

	if snap.Err != nil {
		c.failures++
		if !errors.Is(snap.Err, ErrCaptureUnavailable) {
			snap.Err = errors.Join(ErrCaptureUnavailable, snap.Err)
		}
		if c.failing.Fail() {
			log.Warn().
				Err(snap.Err).
				Str("source", src.ID()).
				Uint64("tick", uint64(tick)).
				Msg("Backdrop capture unavailable, keeping last frames")
		}
		return snap
	}

	if n := c.failing.Clear(); n > 0 {
		log.Info().
			Str("source", src.ID()).
			Uint64("failed_ticks", n).
			Msg("Backdrop capture recovered")
	}

	log.Debug().
		Str("source", src.ID()).
		Uint64("tick", uint64(tick)).
		Float64("scale", scale).
		Int("width", size.X).
		Int("height", size.Y).
		Msg("Captured backdrop")

	return snap
}

// Stats returns a copy of the cache counters
func (c *SharedFrameCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Tick:     c.CurrentTick(),
		Captures: c.captures,
		Failures: c.failures,
		Hits:     c.hits,
	}
}
