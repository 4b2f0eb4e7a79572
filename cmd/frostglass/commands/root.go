package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/frostglass/internal/config"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "frostglass",
		Short: "frostglass - adaptive real-time backdrop blur",
		Long: `frostglass renders translucent "frosted glass" surfaces over a live
backdrop. Every display tick the backdrop is captured once, at a resolution
chosen from the host's hardware tier, and each surface crops its region out
of that shared snapshot and runs it through blur, saturation and tint.

Features:
  • Capture an X11 window or an image file as the backdrop
  • Per-surface style presets (light, regular, dark) or explicit parameters
  • Hardware tiers pick the capture resolution automatically
  • MJPEG streams per surface, an X11 preview window, or half-block
    rendering in the terminal
  • REST API and websocket stats stream`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/frostglass/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable console logs")
	rootCmd.PersistentFlags().String("device-model", "", "device model identifier used for tier classification")
	rootCmd.PersistentFlags().Int("fps", 0, "display refresh rate")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
	viper.BindPFlag("device_model", rootCmd.PersistentFlags().Lookup("device-model"))
	viper.BindPFlag("display.fps", rootCmd.PersistentFlags().Lookup("fps"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.SetEnvPrefix("FROSTGLASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the config file, applies flag and environment overrides
// and initializes logging
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()
	if err := config.ApplyOverrides(cfg, viper.GetViper()); err != nil {
		return nil, nil, fmt.Errorf("invalid override: %w", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, cfg, nil
}
