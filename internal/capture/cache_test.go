package capture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/bryanchriswhite/frostglass/internal/clock"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// countingCapturer records every Capture call
type countingCapturer struct {
	calls int
	sizes []image.Point
	err   error
}

func (c *countingCapturer) Name() string { return "counting" }

func (c *countingCapturer) Capture(src Source, size image.Point) (*image.RGBA, error) {
	c.calls++
	c.sizes = append(c.sizes, size)
	if c.err != nil {
		return nil, c.err
	}
	img := image.NewRGBA(image.Rectangle{Max: size})
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img, nil
}

type fixedTicks clock.TickID

func (f fixedTicks) CurrentTick() clock.TickID { return clock.TickID(f) }

func solidSource(w, h int) *ImageSource {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	return NewImageSource("solid", img)
}

func TestSnapshotForSharesWithinTick(t *testing.T) {
	cap := &countingCapturer{}
	cache := NewSharedFrameCache(cap, fixedTicks(7))
	src := solidSource(100, 50)

	first := cache.SnapshotFor(1, src, 0.2)
	for i := 0; i < 9; i++ {
		snap := cache.SnapshotFor(1, src, 0.5)
		if snap.Pixels != first.Pixels {
			t.Fatal("same tick returned a different buffer")
		}
		if snap.Scale != 0.2 {
			t.Fatalf("first requester's scale should win, got %v", snap.Scale)
		}
	}

	if cap.calls != 1 {
		t.Fatalf("capture calls = %d, want 1", cap.calls)
	}
	if cap.sizes[0] != image.Pt(20, 10) {
		t.Errorf("capture size = %v, want (20,10)", cap.sizes[0])
	}

	next := cache.SnapshotFor(2, src, 0.5)
	if cap.calls != 2 {
		t.Fatalf("new tick should capture again, calls = %d", cap.calls)
	}
	if next.Tick != 2 || next.Scale != 0.5 {
		t.Errorf("next snapshot = tick %d scale %v", next.Tick, next.Scale)
	}

	stats := cache.Stats()
	if stats.Captures != 2 || stats.Hits != 9 || stats.Tick != 7 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSnapshotForZeroAreaSource(t *testing.T) {
	cap := &countingCapturer{}
	cache := NewSharedFrameCache(cap, nil)
	src := NewImageSource("empty", image.NewRGBA(image.Rectangle{}))

	snap := cache.SnapshotFor(1, src, 1)
	if !snap.Empty() {
		t.Fatal("zero-area source should give an empty snapshot")
	}
	if !errors.Is(snap.Err, ErrCaptureUnavailable) {
		t.Errorf("Err = %v, want ErrCaptureUnavailable", snap.Err)
	}
	if cap.calls != 0 {
		t.Errorf("backend should not be asked to capture a zero-area source")
	}
}

func TestSnapshotForFailureCachedForTick(t *testing.T) {
	refused := errors.New("host refused")
	cap := &countingCapturer{err: refused}
	cache := NewSharedFrameCache(cap, nil)
	src := solidSource(10, 10)

	for i := 0; i < 3; i++ {
		snap := cache.SnapshotFor(5, src, 1)
		if !snap.Empty() {
			t.Fatal("failed capture should be empty")
		}
		if !errors.Is(snap.Err, ErrCaptureUnavailable) || !errors.Is(snap.Err, refused) {
			t.Fatalf("Err = %v", snap.Err)
		}
	}
	if cap.calls != 1 {
		t.Errorf("failed capture retried within the tick: %d calls", cap.calls)
	}
	if got := cache.Stats().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}

	cap.err = nil
	if snap := cache.SnapshotFor(6, src, 1); snap.Empty() {
		t.Error("capture should recover on the next tick")
	}
}

func TestCaptureFailureLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(&buf, "info", false)
	defer logger.Init("info", false)

	cap := &countingCapturer{err: errors.New("window unmapped")}
	cache := NewSharedFrameCache(cap, nil)
	src := solidSource(10, 10)

	for tick := clock.TickID(1); tick <= 3; tick++ {
		cache.SnapshotFor(tick, src, 1)
	}
	if n := strings.Count(buf.String(), "Backdrop capture unavailable"); n != 1 {
		t.Fatalf("failure logged %d times over 3 ticks, want 1:\n%s", n, buf.String())
	}

	cap.err = nil
	cache.SnapshotFor(4, src, 1)
	if !strings.Contains(buf.String(), `"failed_ticks":3`) {
		t.Errorf("recovery not logged:\n%s", buf.String())
	}
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		bounds image.Rectangle
		scale  float64
		want   image.Point
	}{
		{image.Rect(0, 0, 1920, 1080), 0.2, image.Pt(384, 216)},
		{image.Rect(0, 0, 100, 100), 1, image.Pt(100, 100)},
		{image.Rect(0, 0, 3, 3), 0.1, image.Pt(1, 1)},
		{image.Rect(0, 0, 0, 10), 1, image.Point{}},
		{image.Rect(0, 0, 10, 10), 0, image.Point{}},
	}

	for _, tt := range tests {
		if got := TargetSize(tt.bounds, tt.scale); got != tt.want {
			t.Errorf("TargetSize(%v, %v) = %v, want %v", tt.bounds, tt.scale, got, tt.want)
		}
	}
}
