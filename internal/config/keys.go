package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// key is a scalar setting addressable from the CLI, flags and environment
type key struct {
	get func(c *Config) string
	set func(c *Config, value string) error
}

func intKey(field func(c *Config) *int) key {
	return key{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, value string) error {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("invalid integer %q", value)
			}
			*field(c) = n
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) key {
	return key{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, value string) error {
			*field(c) = strings.TrimSpace(value)
			return nil
		},
	}
}

func boolKey(field func(c *Config) *bool) key {
	return key{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, value string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("invalid boolean %q", value)
			}
			*field(c) = b
			return nil
		},
	}
}

var keys = map[string]key{
	"server_port":              intKey(func(c *Config) *int { return &c.ServerPort }),
	"log_level":                stringKey(func(c *Config) *string { return &c.LogLevel }),
	"log_pretty":               boolKey(func(c *Config) *bool { return &c.LogPretty }),
	"device_model":             stringKey(func(c *Config) *string { return &c.DeviceModel }),
	"display.fps":              intKey(func(c *Config) *int { return &c.Display.FPS }),
	"capture.backend":          stringKey(func(c *Config) *string { return &c.Capture.Backend }),
	"capture.backdrop_path":    stringKey(func(c *Config) *string { return &c.Capture.BackdropPath }),
	"render.workers":           intKey(func(c *Config) *int { return &c.Render.Workers }),
	"render.blur_engine":       stringKey(func(c *Config) *string { return &c.Render.BlurEngine }),
	"render.max_buffer_pixels": intKey(func(c *Config) *int { return &c.Render.MaxBufferPixels }),
	"output.type":              stringKey(func(c *Config) *string { return &c.Output.Type }),
	"output.jpeg_quality":      intKey(func(c *Config) *int { return &c.Output.JPEGQuality }),
	"output.cell_width":        intKey(func(c *Config) *int { return &c.Output.CellWidth }),
	"output.cell_height":       intKey(func(c *Config) *int { return &c.Output.CellHeight }),
	"capture.window_id": {
		get: func(c *Config) string { return fmt.Sprintf("0x%x", c.Capture.WindowID) },
		set: func(c *Config, value string) error {
			id, err := strconv.ParseUint(strings.TrimSpace(value), 0, 32)
			if err != nil {
				return fmt.Errorf("invalid window id %q", value)
			}
			c.Capture.WindowID = uint32(id)
			return nil
		},
	},
}

// Keys returns every settable key in sorted order
func Keys() []string {
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetValue returns a setting as a string
func (c *Config) GetValue(name string) (string, error) {
	k, ok := keys[name]
	if !ok {
		return "", fmt.Errorf("unknown key %q", name)
	}
	return k.get(c), nil
}

// SetValue parses and assigns a setting without validating the result
func (c *Config) SetValue(name, value string) error {
	k, ok := keys[name]
	if !ok {
		return fmt.Errorf("unknown key %q", name)
	}
	if err := k.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Set changes one setting, validates the result and saves
func (m *Manager) Set(name, value string) error {
	cfg := m.Get()
	if err := cfg.SetValue(name, value); err != nil {
		return err
	}
	return m.Update(cfg)
}

// ApplyOverrides copies every key set in v onto cfg. A key counts as set when
// its flag was changed on the command line, its environment variable is
// non-empty, or it was set explicitly; zero values override too. Overrides
// are not saved.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	for _, name := range Keys() {
		if !v.IsSet(name) {
			continue
		}
		value := v.GetString(name)
		if err := cfg.SetValue(name, value); err != nil {
			return err
		}
		logger.WithComponent("config").Debug().
			Str("key", name).
			Str("value", value).
			Msg("Applied override")
	}
	return cfg.Validate()
}
