package render

import (
	"image"

	"github.com/google/uuid"
)

// Region is a rectangular effect surface over the backdrop
type Region struct {
	id     string
	bounds image.Rectangle
}

// NewRegion creates a surface. An empty id gets a generated one.
func NewRegion(id string, bounds image.Rectangle) *Region {
	if id == "" {
		id = uuid.NewString()
	}
	return &Region{id: id, bounds: bounds.Canon()}
}

// ID returns the surface identifier
func (r *Region) ID() string { return r.id }

// Bounds returns the surface rectangle in backdrop pixels
func (r *Region) Bounds() image.Rectangle { return r.bounds }
