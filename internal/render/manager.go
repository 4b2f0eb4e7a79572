package render

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/bryanchriswhite/frostglass/internal/capture"
	"github.com/bryanchriswhite/frostglass/internal/effect"
	"github.com/bryanchriswhite/frostglass/internal/hardware"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Stats is a snapshot of the whole renderer
type Stats struct {
	Tier     string             `json:"tier"`
	Scale    float64            `json:"tier_scale"`
	Cache    capture.CacheStats `json:"cache"`
	Surfaces []ControllerStats  `json:"surfaces"`
}

// Manager owns the controllers of all attached surfaces
type Manager struct {
	env *Env

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewManager creates a manager sharing env across its controllers
func NewManager(env *Env) *Manager {
	return &Manager{
		env:         env,
		controllers: make(map[string]*Controller),
	}
}

// Attach creates and attaches a controller for surface
func (m *Manager) Attach(surface Surface, desc effect.Descriptor) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.controllers[surface.ID()]; exists {
		return nil, fmt.Errorf("surface %s already exists", surface.ID())
	}

	ctrl := NewController(m.env, surface, desc)
	if err := ctrl.Attach(); err != nil {
		return nil, err
	}
	m.controllers[surface.ID()] = ctrl

	logger.WithComponent("render").Info().
		Str("surface", surface.ID()).
		Str("bounds", surface.Bounds().String()).
		Str("effect", desc.String()).
		Msg("Added effect surface")
	return ctrl, nil
}

// Detach detaches and forgets the surface with id
func (m *Manager) Detach(id string) error {
	m.mu.Lock()
	ctrl, ok := m.controllers[id]
	delete(m.controllers, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("surface %s not found", id)
	}
	ctrl.Detach()

	logger.WithComponent("render").Info().Str("surface", id).Msg("Removed effect surface")
	return nil
}

// DetachAll detaches every surface
func (m *Manager) DetachAll() {
	m.mu.Lock()
	ctrls := m.controllers
	m.controllers = make(map[string]*Controller)
	m.mu.Unlock()

	for _, ctrl := range ctrls {
		ctrl.Detach()
	}
}

// Get returns the controller for id
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, ok := m.controllers[id]
	return ctrl, ok
}

// List returns all controllers ordered by surface id
func (m *Manager) List() []*Controller {
	m.mu.RLock()
	list := make([]*Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		list = append(list, ctrl)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Surface().ID() < list[j].Surface().ID()
	})
	return list
}

// Tier returns the hardware tier in use for surfaces without an override
func (m *Manager) Tier() hardware.Tier {
	if m.env.Classifier == nil {
		return hardware.FallbackTier
	}
	return m.env.Classifier.Classify()
}

// Stats collects cache and per-surface counters
func (m *Manager) Stats() Stats {
	tier := m.Tier()
	s := Stats{
		Tier:     tier.String(),
		Scale:    tier.Scale(),
		Cache:    m.env.Cache.Stats(),
		Surfaces: []ControllerStats{},
	}
	for _, ctrl := range m.List() {
		s.Surfaces = append(s.Surfaces, ctrl.Stats())
	}
	return s
}

// SurfaceBounds returns the bounds of an attached surface
func (m *Manager) SurfaceBounds(id string) (image.Rectangle, bool) {
	ctrl, ok := m.Get(id)
	if !ok {
		return image.Rectangle{}, false
	}
	return ctrl.Surface().Bounds(), true
}
