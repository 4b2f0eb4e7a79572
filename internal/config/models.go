package config

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/frostglass/internal/effect"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Config represents the application configuration
type Config struct {
	ServerPort  int    `json:"server_port" yaml:"server_port"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogPretty   bool   `json:"log_pretty" yaml:"log_pretty"`
	DeviceModel string `json:"device_model" yaml:"device_model"`

	Display  DisplayConfig   `json:"display" yaml:"display"`
	Capture  CaptureConfig   `json:"capture" yaml:"capture"`
	Render   RenderConfig    `json:"render" yaml:"render"`
	Output   OutputConfig    `json:"output" yaml:"output"`
	Surfaces []SurfaceConfig `json:"surfaces" yaml:"surfaces"`
}

// DisplayConfig represents the presentation loop configuration
type DisplayConfig struct {
	FPS int `json:"fps" yaml:"fps"`
}

// CaptureConfig selects the backdrop source
type CaptureConfig struct {
	// Backend is "x11" or "file"
	Backend      string `json:"backend" yaml:"backend"`
	WindowID     uint32 `json:"window_id" yaml:"window_id"`
	BackdropPath string `json:"backdrop_path" yaml:"backdrop_path"`
}

// RenderConfig configures the filter pipeline
type RenderConfig struct {
	Workers         int    `json:"workers" yaml:"workers"`
	BlurEngine      string `json:"blur_engine" yaml:"blur_engine"`
	MaxBufferPixels int    `json:"max_buffer_pixels" yaml:"max_buffer_pixels"`
}

// OutputConfig selects where frames are presented
type OutputConfig struct {
	// Type is "mjpeg", "terminal" or "x11"
	Type        string `json:"type" yaml:"type"`
	JPEGQuality int    `json:"jpeg_quality" yaml:"jpeg_quality"`
	CellWidth   int    `json:"cell_width" yaml:"cell_width"`
	CellHeight  int    `json:"cell_height" yaml:"cell_height"`
}

// SurfaceConfig is one effect surface. A nil BlurRadius or Vibrancy takes
// the style's preset.
type SurfaceConfig struct {
	ID                   string   `json:"id" yaml:"id"`
	X                    int      `json:"x" yaml:"x"`
	Y                    int      `json:"y" yaml:"y"`
	Width                int      `json:"width" yaml:"width"`
	Height               int      `json:"height" yaml:"height"`
	Style                string   `json:"style" yaml:"style"`
	BlurRadius           *float64 `json:"blur_radius,omitempty" yaml:"blur_radius,omitempty"`
	Vibrancy             *float64 `json:"vibrancy,omitempty" yaml:"vibrancy,omitempty"`
	CaptureScaleOverride float64  `json:"capture_scale_override,omitempty" yaml:"capture_scale_override,omitempty"`
}

// Bounds returns the surface rectangle in backdrop pixels
func (s SurfaceConfig) Bounds() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// Descriptor builds and validates the surface's effect descriptor
func (s SurfaceConfig) Descriptor() (effect.Descriptor, error) {
	style, err := effect.ParseStyle(s.Style)
	if err != nil {
		return effect.Descriptor{}, err
	}
	return effect.FromOptions(effect.Options{
		Style:                style,
		BlurRadius:           s.BlurRadius,
		Vibrancy:             s.Vibrancy,
		CaptureScaleOverride: s.CaptureScaleOverride,
	})
}

// Validate checks the surface geometry and effect parameters
func (s SurfaceConfig) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("surface %q: size %dx%d must be positive", s.ID, s.Width, s.Height)
	}
	if _, err := s.Descriptor(); err != nil {
		return fmt.Errorf("surface %q: %w", s.ID, err)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	fs         afero.Fs
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a configuration manager backed by the OS filesystem
func NewManager(configFile string) (*Manager, error) {
	if configFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configFile = filepath.Join(homeDir, ".config", "frostglass", "config.yaml")
	}
	return NewManagerFs(afero.NewOsFs(), configFile)
}

// NewManagerFs creates a configuration manager on fs. A missing config file is
// created with defaults.
func NewManagerFs(fs afero.Fs, configPath string) (*Manager, error) {
	m := &Manager{
		fs:         fs,
		configPath: configPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("surfaces", len(m.config.Surfaces)).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Display: DisplayConfig{
			FPS: 30,
		},
		Capture: CaptureConfig{
			Backend: "x11",
		},
		Render: RenderConfig{
			BlurEngine: "gift",
		},
		Output: OutputConfig{
			Type:        "mjpeg",
			JPEGQuality: 85,
			CellWidth:   32,
			CellHeight:  12,
		},
		Surfaces: []SurfaceConfig{},
	}
}

// load reads the configuration from disk, filling unset fields from defaults
func (m *Manager) load() error {
	data, err := afero.ReadFile(m.fs, m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Surfaces == nil {
		cfg.Surfaces = []SurfaceConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if c.Display.FPS <= 0 {
		return fmt.Errorf("display.fps must be positive, got %d", c.Display.FPS)
	}
	switch c.Capture.Backend {
	case "x11", "file":
	default:
		return fmt.Errorf("unknown capture.backend %q (use x11 or file)", c.Capture.Backend)
	}
	switch c.Output.Type {
	case "mjpeg", "terminal", "x11":
	default:
		return fmt.Errorf("unknown output.type %q (use mjpeg, terminal or x11)", c.Output.Type)
	}
	seen := make(map[string]bool, len(c.Surfaces))
	for _, s := range c.Surfaces {
		if err := s.Validate(); err != nil {
			return err
		}
		if s.ID != "" && seen[s.ID] {
			return fmt.Errorf("duplicate surface id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	cfg.Surfaces = append([]SurfaceConfig(nil), m.config.Surfaces...)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")

	configDir := filepath.Dir(m.configPath)
	if err := m.fs.MkdirAll(configDir, 0755); err != nil {
		log.Error().Err(err).Str("config_dir", configDir).Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(m.fs, m.configPath, data, 0644); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to write config")
		return err
	}

	log.Debug().Str("path", m.configPath).Msg("Config saved")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// AddSurface appends a surface, generating its id if empty, and saves
func (m *Manager) AddSurface(s SurfaceConfig) (SurfaceConfig, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := s.Validate(); err != nil {
		return SurfaceConfig{}, err
	}

	m.mu.Lock()
	for _, existing := range m.config.Surfaces {
		if existing.ID == s.ID {
			m.mu.Unlock()
			return SurfaceConfig{}, fmt.Errorf("surface %q already exists", s.ID)
		}
	}
	m.config.Surfaces = append(m.config.Surfaces, s)
	m.mu.Unlock()

	logger.WithComponent("config").Info().Str("surface", s.ID).Msg("Added surface")
	return s, m.Save()
}

// RemoveSurface deletes a surface by id and saves
func (m *Manager) RemoveSurface(id string) error {
	m.mu.Lock()
	surfaces := m.config.Surfaces
	for i, s := range surfaces {
		if s.ID == id {
			m.config.Surfaces = append(surfaces[:i:i], surfaces[i+1:]...)
			m.mu.Unlock()
			logger.WithComponent("config").Info().Str("surface", id).Msg("Removed surface")
			return m.Save()
		}
	}
	m.mu.Unlock()
	return fmt.Errorf("surface %q not found", id)
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
	return m.Save()
}

// GetPort gets the server port
func (m *Manager) GetPort() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ServerPort
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
	return m.Save()
}

// GetLogLevel gets the log level
func (m *Manager) GetLogLevel() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.LogLevel
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
