package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spf13/afero"
)

func TestImageCapturerResamples(t *testing.T) {
	src := solidSource(40, 20)
	c := NewImageCapturer()

	img, err := c.Capture(src, image.Pt(8, 4))
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 4) {
		t.Fatalf("bounds = %v, want 8x4", img.Bounds())
	}
	if got := img.RGBAAt(3, 2); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("solid color not preserved: %v", got)
	}
}

func TestImageCapturerSameSizeIsExact(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 3, 1))
	base.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	base.SetRGBA(1, 0, color.RGBA{0, 255, 0, 255})
	base.SetRGBA(2, 0, color.RGBA{0, 0, 255, 255})

	img, err := NewImageCapturer().Capture(NewImageSource("rgb", base), image.Pt(3, 1))
	if err != nil {
		t.Fatal(err)
	}
	for i := range base.Pix {
		if img.Pix[i] != base.Pix[i] {
			t.Fatalf("pixel byte %d = %d, want %d", i, img.Pix[i], base.Pix[i])
		}
	}
}

func TestImageCapturerUnavailable(t *testing.T) {
	c := NewImageCapturer()

	_, err := c.Capture(NewImageSource("nil", nil), image.Pt(4, 4))
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("nil image: err = %v", err)
	}

	_, err = c.Capture(fakeSource{}, image.Pt(4, 4))
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("foreign source: err = %v", err)
	}
}

type fakeSource struct{}

func (fakeSource) ID() string              { return "fake" }
func (fakeSource) Bounds() image.Rectangle { return image.Rect(0, 0, 4, 4) }

func TestFileSourceLoadAndReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/backdrops/desk.png", 16, 8, color.RGBA{R: 255, A: 255})

	src, err := NewFileSource(fs, "/backdrops/desk.png")
	if err != nil {
		t.Fatalf("NewFileSource() failed: %v", err)
	}
	if src.Bounds() != image.Rect(0, 0, 16, 8) {
		t.Fatalf("bounds = %v", src.Bounds())
	}
	if src.ID() != "file:desk.png" {
		t.Errorf("ID() = %q", src.ID())
	}

	writePNG(t, fs, "/backdrops/desk.png", 4, 4, color.RGBA{B: 255, A: 255})
	if err := src.Reload(); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if src.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds after reload = %v", src.Bounds())
	}

	if _, err := NewFileSource(fs, "/backdrops/missing.png"); err == nil {
		t.Error("missing file should fail")
	}
}

func writePNG(t *testing.T, fs afero.Fs, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestConvertBGRX(t *testing.T) {
	data := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	img := convertBGRX(data, 2, 1)

	if got := img.RGBAAt(0, 0); got != (color.RGBA{3, 2, 1, 255}) {
		t.Errorf("pixel 0 = %v", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{6, 5, 4, 255}) {
		t.Errorf("pixel 1 = %v", got)
	}

	short := convertBGRX(data[:4], 2, 1)
	if got := short.RGBAAt(1, 0); got.A != 0 {
		t.Errorf("missing data should stay transparent, got %v", got)
	}
}
