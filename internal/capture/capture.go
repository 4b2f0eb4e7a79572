package capture

import (
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ErrCaptureUnavailable means the source has no area or the backend declined
// to rasterize it. Callers skip the frame and keep the last output.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Source is something whose current visual content can be captured
type Source interface {
	// ID returns a stable identifier for logging
	ID() string

	// Bounds returns the source's current geometry in its own pixel space
	Bounds() image.Rectangle
}

// Capturer defines the interface for backdrop capture backends
type Capturer interface {
	// Capture rasterizes src's current content into a buffer of the given size.
	// Returns ErrCaptureUnavailable (possibly wrapped) when src cannot be captured.
	Capture(src Source, size image.Point) (*image.RGBA, error)

	// Name returns a human-readable name for this capturer
	Name() string
}

// TargetSize scales bounds by scale, rounding to whole pixels. A non-empty
// source never scales below 1x1.
func TargetSize(bounds image.Rectangle, scale float64) image.Point {
	if bounds.Empty() || scale <= 0 {
		return image.Point{}
	}
	w := int(math.Round(float64(bounds.Dx()) * scale))
	h := int(math.Round(float64(bounds.Dy()) * scale))
	return image.Pt(max(w, 1), max(h, 1))
}

// Resample draws src into a new RGBA buffer of the given size. Same-size
// input is copied pixel for pixel.
func Resample(src image.Image, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	if src.Bounds().Size() == size {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
