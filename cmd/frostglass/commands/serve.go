package commands

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/frostglass/internal/api"
	"github.com/bryanchriswhite/frostglass/internal/capture"
	"github.com/bryanchriswhite/frostglass/internal/clock"
	"github.com/bryanchriswhite/frostglass/internal/config"
	"github.com/bryanchriswhite/frostglass/internal/filter"
	"github.com/bryanchriswhite/frostglass/internal/logger"
	"github.com/bryanchriswhite/frostglass/internal/output"
	"github.com/bryanchriswhite/frostglass/internal/render"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the frostglass renderer and HTTP server",
	Long: `Start the presentation loop, render every configured surface and serve
the REST API and output streams.`,
	Example: `  # Start with the surfaces from the config file
  frostglass serve

  # Render over a wallpaper instead of a live window
  FROSTGLASS_CAPTURE_BACKEND=file FROSTGLASS_CAPTURE_BACKDROP_PATH=~/wall.png frostglass serve

  # Draw the surfaces in the terminal
  frostglass serve --output terminal

  # Show the surfaces in an X11 window at their positions
  frostglass serve --output x11

  # Start with debug logging at 60 FPS
  frostglass serve --log-level debug --fps 60`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("output", "", "output type (mjpeg, terminal or x11)")
	serveCmd.Flags().String("engine", "", "blur engine (gift or bild)")
	serveCmd.Flags().Int("workers", 0, "filter worker goroutines (default NumCPU)")

	viper.BindPFlag("output.type", serveCmd.Flags().Lookup("output"))
	viper.BindPFlag("render.blur_engine", serveCmd.Flags().Lookup("engine"))
	viper.BindPFlag("render.workers", serveCmd.Flags().Lookup("workers"))
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("serve")
	log.Info().Str("path", configMgr.GetConfigPath()).Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := filter.EngineByName(cfg.Render.BlurEngine)
	if err != nil {
		return err
	}

	bd, err := openBackdrop(ctx, afero.NewOsFs(), cfg.Capture)
	if err != nil {
		return fmt.Errorf("failed to open backdrop: %w", err)
	}
	defer bd.stop()

	out := newOutput(cfg.Output, cfg.Display.FPS, bd.source.Bounds().Size())
	if err := out.Start(); err != nil {
		return fmt.Errorf("failed to start %s output: %w", cfg.Output.Type, err)
	}
	defer out.Stop()

	link := clock.NewDisplayLink(cfg.Display.FPS)
	pool := render.NewPool(cfg.Render.Workers)

	renderer := render.NewManager(&render.Env{
		Clock:           link,
		Dispatcher:      link,
		Cache:           capture.NewSharedFrameCache(bd.capturer, link),
		Source:          bd.source,
		Classifier:      classifierFor(cfg),
		Executor:        pool,
		Presenter:       out,
		Engine:          engine,
		MaxBufferPixels: cfg.Render.MaxBufferPixels,
	})

	if xo, ok := out.(*output.X11Output); ok {
		xo.SetLayout(renderer)
	}

	if err := attachSurfaces(renderer, cfg.Surfaces); err != nil {
		return err
	}

	if err := pool.Start(ctx); err != nil {
		return err
	}
	if err := link.Start(ctx); err != nil {
		return err
	}

	server := api.NewServer(renderer, configMgr, out)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()
		}
	}()

	log.Info().
		Str("capture", bd.capturer.Name()).
		Str("source", bd.source.ID()).
		Str("output", out.Name()).
		Str("engine", engine.Name()).
		Int("fps", cfg.Display.FPS).
		Int("workers", pool.Workers()).
		Int("surfaces", len(cfg.Surfaces)).
		Int("port", cfg.ServerPort).
		Msg("frostglass is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown failed")
	}

	// Detach first so in-flight passes are cancelled, then drain the pool
	// while the loop still accepts their completions.
	renderer.DetachAll()
	pool.Stop()
	link.Stop()
	return nil
}

// newOutput creates the configured frame output
func newOutput(cfg config.OutputConfig, fps int, size image.Point) output.Output {
	oc := output.Config{
		FPS:         fps,
		JPEGQuality: cfg.JPEGQuality,
		CellWidth:   cfg.CellWidth,
		CellHeight:  cfg.CellHeight,
	}
	switch cfg.Type {
	case "terminal":
		return output.NewTerminalOutput(nil, oc)
	case "x11":
		return output.NewX11Output(oc, size, nil)
	default:
		return output.NewMJPEGOutput(oc)
	}
}

// attachSurfaces attaches every configured surface
func attachSurfaces(renderer *render.Manager, surfaces []config.SurfaceConfig) error {
	for _, s := range surfaces {
		desc, err := s.Descriptor()
		if err != nil {
			return fmt.Errorf("surface %q: %w", s.ID, err)
		}
		if _, err := renderer.Attach(render.NewRegion(s.ID, s.Bounds()), desc); err != nil {
			return err
		}
	}
	return nil
}
