// Package output delivers rendered effect frames to viewers.
package output

import (
	"image"
)

// Output defines the interface for frame output mechanisms.
// Implementations:
// - MJPEG HTTP stream, one stream per surface
// - Terminal, half-block cells via tcell
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// Present replaces the visible content of one surface. The frame must not
	// be modified by the output.
	Present(surfaceID string, frame *image.RGBA) error

	// Remove forgets a surface that has been detached
	Remove(surfaceID string)

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for all output types
type Config struct {
	FPS int

	// JPEGQuality is used by the MJPEG output (1-100)
	JPEGQuality int

	// CellWidth and CellHeight size each surface on the terminal output
	CellWidth  int
	CellHeight int
}
