// Package effect defines the immutable description of a backdrop effect.
package effect

import (
	"fmt"
	"math"
	"strings"
)

// Style selects the tint drawn on top of the filtered backdrop
type Style int

const (
	StyleNone Style = iota
	StyleLight
	StyleRegular
	StyleDark
)

// String returns the config name of the style
func (s Style) String() string {
	switch s {
	case StyleNone:
		return "none"
	case StyleLight:
		return "light"
	case StyleRegular:
		return "regular"
	case StyleDark:
		return "dark"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

func (s Style) valid() bool {
	return s >= StyleNone && s <= StyleDark
}

// ParseStyle parses a style name as used in config files and the API
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return StyleNone, nil
	case "light":
		return StyleLight, nil
	case "regular":
		return StyleRegular, nil
	case "dark":
		return StyleDark, nil
	default:
		return StyleNone, &ConfigurationError{Field: "style", Reason: fmt.Sprintf("unknown style %q", name)}
	}
}

// ConfigurationError is returned when a descriptor is built from invalid
// parameters. Values are never clamped.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid effect %s: %s", e.Field, e.Reason)
}

// Descriptor is an immutable effect description. A different effect is a new
// descriptor.
type Descriptor struct {
	style    Style
	radius   float64
	vibrancy float64
	override float64
}

// preset values for the named styles
var presets = map[Style]struct{ radius, vibrancy float64 }{
	StyleLight:   {radius: 8, vibrancy: 1.25},
	StyleRegular: {radius: 50, vibrancy: 1.7},
	StyleDark:    {radius: 25, vibrancy: 1.05},
}

// New validates and builds a descriptor.
//
// radius must be >= 0, vibrancy > 0, and captureScaleOverride either 0 (use the
// hardware tier) or in (0, 1].
func New(style Style, radius, vibrancy, captureScaleOverride float64) (Descriptor, error) {
	if !style.valid() {
		return Descriptor{}, &ConfigurationError{Field: "style", Reason: fmt.Sprintf("unknown style %d", int(style))}
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return Descriptor{}, &ConfigurationError{Field: "radius", Reason: fmt.Sprintf("must be a finite value >= 0, got %v", radius)}
	}
	if math.IsNaN(vibrancy) || math.IsInf(vibrancy, 0) || vibrancy <= 0 {
		return Descriptor{}, &ConfigurationError{Field: "vibrancy", Reason: fmt.Sprintf("must be a finite value > 0, got %v", vibrancy)}
	}
	if math.IsNaN(captureScaleOverride) || captureScaleOverride < 0 || captureScaleOverride > 1 {
		return Descriptor{}, &ConfigurationError{Field: "capture_scale_override", Reason: fmt.Sprintf("must be 0 or in (0, 1], got %v", captureScaleOverride)}
	}

	return Descriptor{
		style:    style,
		radius:   radius,
		vibrancy: vibrancy,
		override: captureScaleOverride,
	}, nil
}

// ForStyle builds the preset descriptor for a named style
func ForStyle(style Style, captureScaleOverride float64) (Descriptor, error) {
	p, ok := presets[style]
	if !ok {
		return Descriptor{}, &ConfigurationError{Field: "style", Reason: fmt.Sprintf("style %s has no preset, give an explicit blur radius", style)}
	}
	return New(style, p.radius, p.vibrancy, captureScaleOverride)
}

// Options is the caller-facing configuration surface. Nil radius or vibrancy
// take the style preset.
type Options struct {
	Style                Style
	BlurRadius           *float64
	Vibrancy             *float64
	CaptureScaleOverride float64
}

// FromOptions builds a descriptor from Options
func FromOptions(o Options) (Descriptor, error) {
	radius, vibrancy := 0.0, 1.0
	if p, ok := presets[o.Style]; ok {
		radius, vibrancy = p.radius, p.vibrancy
	} else if o.BlurRadius == nil {
		return Descriptor{}, &ConfigurationError{Field: "blur_radius", Reason: fmt.Sprintf("required for style %s", o.Style)}
	}
	if o.BlurRadius != nil {
		radius = *o.BlurRadius
	}
	if o.Vibrancy != nil {
		vibrancy = *o.Vibrancy
	}
	return New(o.Style, radius, vibrancy, o.CaptureScaleOverride)
}

// Style returns the tint style
func (d Descriptor) Style() Style { return d.style }

// Radius returns the blur radius in source-view pixels
func (d Descriptor) Radius() float64 { return d.radius }

// Vibrancy returns the saturation factor; 1.0 leaves colors unchanged
func (d Descriptor) Vibrancy() float64 { return d.vibrancy }

// CaptureScaleOverride returns the explicit capture scale, 0 meaning tier default
func (d Descriptor) CaptureScaleOverride() float64 { return d.override }

// HasOverride reports whether the descriptor bypasses the hardware tier
func (d Descriptor) HasOverride() bool { return d.override != 0 }

func (d Descriptor) String() string {
	return fmt.Sprintf("effect{style=%s radius=%g vibrancy=%g override=%g}", d.style, d.radius, d.vibrancy, d.override)
}
