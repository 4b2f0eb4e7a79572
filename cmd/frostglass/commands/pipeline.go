package commands

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/bryanchriswhite/frostglass/internal/capture"
	"github.com/bryanchriswhite/frostglass/internal/config"
	"github.com/bryanchriswhite/frostglass/internal/hardware"
	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// backdrop is the capture side of the pipeline
type backdrop struct {
	capturer capture.Capturer
	source   capture.Source
	stop     func()
}

// openBackdrop opens the configured capture backend. File backdrops are
// reloaded when the file changes until ctx is done.
func openBackdrop(ctx context.Context, fs afero.Fs, cfg config.CaptureConfig) (*backdrop, error) {
	log := logger.WithComponent("capture")

	switch cfg.Backend {
	case "file":
		if cfg.BackdropPath == "" {
			return nil, fmt.Errorf("capture.backdrop_path is required for the file backend")
		}
		src, err := capture.NewFileSource(fs, cfg.BackdropPath)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := src.Watch(ctx); err != nil {
				log.Warn().Err(err).Str("path", cfg.BackdropPath).Msg("Backdrop watch stopped")
			}
		}()
		return &backdrop{
			capturer: capture.NewImageCapturer(),
			source:   src,
			stop:     func() {},
		}, nil

	case "x11":
		x11, err := capture.NewX11Capturer()
		if err != nil {
			return nil, err
		}
		if err := x11.Start(); err != nil {
			return nil, err
		}
		return &backdrop{
			capturer: x11,
			source:   x11.Window(cfg.WindowID),
			stop:     func() { x11.Stop() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.Backend)
	}
}

// classifierFor returns the memoized tier classifier for the host
func classifierFor(cfg *config.Config) hardware.Classifier {
	model := hardware.DetectModel(cfg.DeviceModel)
	logger.WithComponent("hardware").Debug().Str("model", model).Msg("Device model")
	return hardware.NewMemo(hardware.ModelClassifier{Model: model})
}
