package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// ImageSource is a backdrop backed by a still image
type ImageSource struct {
	id  string
	mu  sync.RWMutex
	img image.Image
}

// NewImageSource wraps an in-memory image
func NewImageSource(id string, img image.Image) *ImageSource {
	return &ImageSource{id: id, img: img}
}

// ID returns the source identifier
func (s *ImageSource) ID() string {
	return s.id
}

// Bounds returns the current image bounds, or an empty rectangle if there is
// no image
func (s *ImageSource) Bounds() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Bounds()
}

// Image returns the current image
func (s *ImageSource) Image() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img
}

// SetImage replaces the backing image
func (s *ImageSource) SetImage(img image.Image) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()
}

// FileSource is an ImageSource loaded from a file, optionally reloaded when the
// file changes on disk
type FileSource struct {
	*ImageSource
	fs   afero.Fs
	path string
}

// NewFileSource loads path from fs
func NewFileSource(fs afero.Fs, path string) (*FileSource, error) {
	s := &FileSource{
		ImageSource: NewImageSource("file:"+filepath.Base(path), nil),
		fs:          fs,
		path:        path,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path
func (s *FileSource) Path() string {
	return s.path
}

// Reload decodes the backing file again
func (s *FileSource) Reload() error {
	img, err := LoadImage(s.fs, s.path)
	if err != nil {
		return err
	}
	s.SetImage(img)
	return nil
}

// Watch reloads the image whenever the file is written, until ctx is done.
// Only meaningful on an OS-backed filesystem.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are still seen
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	log := logger.WithComponent("file-source")
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					log.Warn().Err(err).Str("path", s.path).Msg("Failed to reload backdrop")
					continue
				}
				log.Info().Str("path", s.path).Msg("Backdrop reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Backdrop watcher error")
			}
		}
	}()

	return nil
}

// LoadImage decodes a PNG, JPEG, BMP or WebP file
func LoadImage(fs afero.Fs, path string) (image.Image, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// imager is a source that exposes its pixels directly
type imager interface {
	Image() image.Image
}

// ImageCapturer captures sources that hold their own image
type ImageCapturer struct{}

// NewImageCapturer creates an image capturer
func NewImageCapturer() *ImageCapturer {
	return &ImageCapturer{}
}

// Name returns the capturer name
func (c *ImageCapturer) Name() string {
	return "Image"
}

// Capture resamples the source image to size
func (c *ImageCapturer) Capture(src Source, size image.Point) (*image.RGBA, error) {
	im, ok := src.(imager)
	if !ok {
		return nil, fmt.Errorf("source %s has no image: %w", src.ID(), ErrCaptureUnavailable)
	}
	img := im.Image()
	if img == nil || img.Bounds().Empty() || size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("source %s is empty: %w", src.ID(), ErrCaptureUnavailable)
	}
	return Resample(img, size), nil
}
