package effect

import (
	"errors"
	"math"
	"testing"
)

func TestNewRoundTrip(t *testing.T) {
	tests := []struct {
		style                      Style
		radius, vibrancy, override float64
	}{
		{StyleLight, 8, 1.25, 0},
		{StyleDark, 0, 0.0001, 1},
		{StyleNone, 13.37, 3.5, 0.123},
		{StyleRegular, 1e6, 1, 0.5},
	}

	for _, tt := range tests {
		d, err := New(tt.style, tt.radius, tt.vibrancy, tt.override)
		if err != nil {
			t.Fatalf("New(%v, %v, %v, %v) failed: %v", tt.style, tt.radius, tt.vibrancy, tt.override, err)
		}
		if d.Style() != tt.style || d.Radius() != tt.radius || d.Vibrancy() != tt.vibrancy || d.CaptureScaleOverride() != tt.override {
			t.Errorf("round trip mismatch: got %v", d)
		}
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name                       string
		style                      Style
		radius, vibrancy, override float64
		field                      string
	}{
		{"negative radius", StyleLight, -1, 1, 0, "radius"},
		{"nan radius", StyleLight, math.NaN(), 1, 0, "radius"},
		{"zero vibrancy", StyleLight, 1, 0, 0, "vibrancy"},
		{"negative vibrancy", StyleLight, 1, -2, 0, "vibrancy"},
		{"negative override", StyleLight, 1, 1, -0.1, "capture_scale_override"},
		{"override above one", StyleLight, 1, 1, 1.5, "capture_scale_override"},
		{"unknown style", Style(42), 1, 1, 0, "style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.style, tt.radius, tt.vibrancy, tt.override)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestForStylePresets(t *testing.T) {
	tests := []struct {
		style            Style
		radius, vibrancy float64
	}{
		{StyleLight, 8, 1.25},
		{StyleRegular, 50, 1.7},
		{StyleDark, 25, 1.05},
	}

	for _, tt := range tests {
		d, err := ForStyle(tt.style, 0.25)
		if err != nil {
			t.Fatalf("ForStyle(%v) failed: %v", tt.style, err)
		}
		if d.Radius() != tt.radius || d.Vibrancy() != tt.vibrancy {
			t.Errorf("%v preset = (%v, %v), want (%v, %v)", tt.style, d.Radius(), d.Vibrancy(), tt.radius, tt.vibrancy)
		}
		if d.CaptureScaleOverride() != 0.25 || !d.HasOverride() {
			t.Errorf("%v override not carried", tt.style)
		}
	}

	if _, err := ForStyle(StyleNone, 0); err == nil {
		t.Error("ForStyle(None) should fail: no preset")
	}
}

func TestFromOptions(t *testing.T) {
	radius := 4.0
	vibrancy := 1.0

	d, err := FromOptions(Options{Style: StyleDark, Vibrancy: &vibrancy})
	if err != nil {
		t.Fatalf("FromOptions failed: %v", err)
	}
	if d.Radius() != 25 || d.Vibrancy() != 1 {
		t.Errorf("got %v, want dark radius with explicit vibrancy", d)
	}

	d, err = FromOptions(Options{Style: StyleNone, BlurRadius: &radius})
	if err != nil {
		t.Fatalf("FromOptions(None) failed: %v", err)
	}
	if d.Radius() != 4 || d.Vibrancy() != 1 || d.HasOverride() {
		t.Errorf("got %v", d)
	}

	if _, err := FromOptions(Options{Style: StyleNone}); err == nil {
		t.Error("style none without radius should be rejected")
	}

	negative := -3.0
	if _, err := FromOptions(Options{Style: StyleLight, BlurRadius: &negative}); err == nil {
		t.Error("negative radius should be rejected, not clamped")
	}
}

func TestParseStyle(t *testing.T) {
	for _, s := range []Style{StyleNone, StyleLight, StyleRegular, StyleDark} {
		got, err := ParseStyle(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStyle(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStyle("frosted"); err == nil {
		t.Error("unknown style name should fail")
	}
}
