// Package render drives the per-tick backdrop effect for every visible surface.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/bryanchriswhite/frostglass/internal/capture"
	"github.com/bryanchriswhite/frostglass/internal/clock"
	"github.com/bryanchriswhite/frostglass/internal/effect"
	"github.com/bryanchriswhite/frostglass/internal/filter"
	"github.com/bryanchriswhite/frostglass/internal/hardware"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Surface is an effect view. Bounds are in the backdrop source's pixel space.
type Surface interface {
	ID() string
	Bounds() image.Rectangle
}

// Presenter replaces a surface's visible content
type Presenter interface {
	Present(surfaceID string, frame *image.RGBA) error
}

// PresenterFunc adapts a function to Presenter
type PresenterFunc func(surfaceID string, frame *image.RGBA) error

// Present calls f
func (f PresenterFunc) Present(surfaceID string, frame *image.RGBA) error { return f(surfaceID, frame) }

// Env holds the collaborators shared by all controllers
type Env struct {
	Clock      clock.Clock
	Dispatcher clock.Dispatcher
	Cache      *capture.SharedFrameCache
	Source     capture.Source
	Classifier hardware.Classifier
	Executor   Executor
	Presenter  Presenter
	Engine     filter.BlurEngine

	// MaxBufferPixels caps each intermediate filter buffer; 0 = unlimited
	MaxBufferPixels int
}

// post runs fn on the presentation loop, or directly without a dispatcher
func (e *Env) post(fn func()) {
	if e.Dispatcher == nil {
		fn()
		return
	}
	e.Dispatcher.Post(fn)
}

func (e *Env) executor() Executor {
	if e.Executor == nil {
		return Inline{}
	}
	return e.Executor
}

// State is a controller's lifecycle state
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// ControllerStats holds per-surface counters
type ControllerStats struct {
	SurfaceID     string  `json:"surface_id"`
	State         string  `json:"state"`
	Style         string  `json:"style"`
	Radius        float64 `json:"blur_radius"`
	Vibrancy      float64 `json:"vibrancy"`
	Override      float64 `json:"capture_scale_override"`
	LastScale     float64 `json:"last_scale"`
	Frames        uint64  `json:"frames"`
	CaptureMisses uint64  `json:"capture_misses"`
	BusySkips     uint64  `json:"busy_skips"`
	Failures      uint64  `json:"failures"`
	Discarded     uint64  `json:"discarded"`
}

// Controller renders one effect surface. Tick handling and completions run on
// the presentation loop; Attach, Detach and the getters are safe from any
// goroutine.
type Controller struct {
	env     *Env
	surface Surface
	desc    effect.Descriptor

	// presentMu is held from the generation check in complete through
	// Present, and by Detach, so no frame is presented after Detach returns
	presentMu sync.Mutex

	mu         sync.Mutex
	state      State
	sub        clock.Subscription
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	inFlight   bool
	lastScale  float64
	stats      ControllerStats

	// output is swapped wholesale, never written in place
	output atomic.Pointer[image.RGBA]

	exhausted  logger.Occurrence
	presenting logger.Occurrence
}

// NewController creates an inactive controller for surface
func NewController(env *Env, surface Surface, desc effect.Descriptor) *Controller {
	return &Controller{
		env:     env,
		surface: surface,
		desc:    desc,
	}
}

// Surface returns the controlled surface
func (c *Controller) Surface() Surface { return c.surface }

// Descriptor returns the effect descriptor
func (c *Controller) Descriptor() effect.Descriptor { return c.desc }

// Output returns the last good frame, or nil
func (c *Controller) Output() *image.RGBA { return c.output.Load() }

// State returns the lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the attach generation
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// LastScale returns the capture scale of the last presented frame
func (c *Controller) LastScale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastScale
}

// Stats returns a copy of the controller counters
func (c *Controller) Stats() ControllerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.SurfaceID = c.surface.ID()
	s.State = c.state.String()
	s.Style = c.desc.Style().String()
	s.Radius = c.desc.Radius()
	s.Vibrancy = c.desc.Vibrancy()
	s.Override = c.desc.CaptureScaleOverride()
	s.LastScale = c.lastScale
	return s
}

// Attach subscribes the controller to the clock
func (c *Controller) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Active {
		return fmt.Errorf("surface %s already attached", c.surface.ID())
	}

	// inFlight is left alone: a pass cancelled by an earlier Detach still
	// counts until its completion comes back
	c.generation++
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.state = Active
	c.sub = c.env.Clock.Subscribe(c.onTick)

	logger.WithComponent("render").Debug().
		Str("surface", c.surface.ID()).
		Uint64("generation", c.generation).
		Str("effect", c.desc.String()).
		Msg("Surface attached")
	return nil
}

// Detach unsubscribes, cancels in-flight work and drops the output buffer.
// Results of work started before Detach are discarded, and a presentation
// already under way finishes before Detach returns. Idempotent.
func (c *Controller) Detach() {
	c.presentMu.Lock()
	defer c.presentMu.Unlock()

	c.mu.Lock()
	if c.state == Inactive {
		c.mu.Unlock()
		return
	}
	c.state = Inactive
	c.generation++
	c.cancel()
	sub := c.sub
	c.mu.Unlock()

	c.env.Clock.Unsubscribe(sub)
	c.output.Store(nil)

	logger.WithComponent("render").Debug().
		Str("surface", c.surface.ID()).
		Msg("Surface detached")
}

// EffectiveScale is the override when set, else the hardware tier's scale
func (c *Controller) EffectiveScale() float64 {
	if c.desc.HasOverride() {
		return c.desc.CaptureScaleOverride()
	}
	if c.env.Classifier == nil {
		return hardware.FallbackTier.Scale()
	}
	return c.env.Classifier.Classify().Scale()
}

// onTick runs on the presentation loop
func (c *Controller) onTick(tick clock.TickID) {
	c.mu.Lock()
	if c.state != Active {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		c.stats.BusySkips++
		c.mu.Unlock()
		return
	}
	gen, ctx := c.generation, c.ctx
	c.mu.Unlock()

	snap := c.env.Cache.SnapshotFor(tick, c.env.Source, c.EffectiveScale())
	region := c.region(snap)
	if region == nil {
		c.mu.Lock()
		c.stats.CaptureMisses++
		c.mu.Unlock()
		return
	}

	chain := filter.Build(c.desc, snap.Scale, c.env.Engine).WithBudget(c.env.MaxBufferPixels)

	c.mu.Lock()
	if c.generation != gen {
		// detached while capturing
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	accepted := c.env.executor().Submit(func() {
		out, err := chain.Run(ctx, region)
		c.env.post(func() {
			c.complete(gen, snap.Scale, out, err)
		})
	})
	if !accepted {
		c.mu.Lock()
		c.inFlight = false
		c.stats.BusySkips++
		c.mu.Unlock()
	}
}

// region crops the surface's area out of the shared snapshot, or returns nil
// if there is nothing to filter
func (c *Controller) region(snap capture.Snapshot) image.Image {
	if snap.Empty() {
		return nil
	}
	b := c.surface.Bounds()
	if b.Empty() {
		return nil
	}
	s := snap.Scale
	r := image.Rect(
		int(math.Floor(float64(b.Min.X)*s)),
		int(math.Floor(float64(b.Min.Y)*s)),
		int(math.Ceil(float64(b.Max.X)*s)),
		int(math.Ceil(float64(b.Max.Y)*s)),
	).Intersect(snap.Pixels.Bounds())
	if r.Empty() {
		return nil
	}
	return snap.Pixels.SubImage(r)
}

// complete runs on the presentation loop once a filter pass finishes
func (c *Controller) complete(gen uint64, scale float64, out *image.RGBA, err error) {
	log := logger.WithComponent("render")

	c.presentMu.Lock()
	defer c.presentMu.Unlock()

	c.mu.Lock()
	// at most one pass runs per controller, so any completion ends it
	c.inFlight = false
	if gen != c.generation || c.state != Active {
		c.stats.Discarded++
		c.mu.Unlock()
		log.Debug().
			Str("surface", c.surface.ID()).
			Uint64("generation", gen).
			Msg("Discarding stale filter result")
		return
	}

	if err != nil {
		c.stats.Failures++
		c.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			return
		}
		if c.exhausted.Fail() {
			log.Warn().
				Err(err).
				Str("surface", c.surface.ID()).
				Msg("Filter pass failed, keeping last frame")
		}
		return
	}

	c.output.Store(out)
	c.lastScale = scale
	c.stats.Frames++
	c.mu.Unlock()

	if n := c.exhausted.Clear(); n > 0 {
		log.Info().
			Str("surface", c.surface.ID()).
			Uint64("failed_frames", n).
			Msg("Filter pass recovered")
	}

	if c.env.Presenter == nil {
		return
	}
	if err := c.env.Presenter.Present(c.surface.ID(), out); err != nil {
		if c.presenting.Fail() {
			log.Warn().Err(err).Str("surface", c.surface.ID()).Msg("Failed to present frame")
		}
		return
	}
	c.presenting.Clear()
}
