package output

import (
	"image"
	"image/color"
	"testing"
)

type fixedLayout map[string]image.Rectangle

func (l fixedLayout) SurfaceBounds(id string) (image.Rectangle, bool) {
	r, ok := l[id]
	return r, ok
}

func TestX11ComposePlacesSurfaces(t *testing.T) {
	layout := fixedLayout{
		"left":  image.Rect(0, 0, 10, 10),
		"right": image.Rect(10, 0, 20, 10),
		"off":   image.Rect(50, 50, 60, 60),
	}
	out := NewX11Output(Config{}, image.Pt(20, 10), layout)

	// quarter-resolution frame is scaled up to the surface
	dirty, err := out.compose("right", solidFrame(5, 5, color.RGBA{G: 255, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	if dirty != image.Rect(10, 0, 20, 10) {
		t.Errorf("dirty = %v", dirty)
	}
	if c := out.canvas.RGBAAt(15, 5); c.G < 250 || c.R != 0 {
		t.Errorf("right surface pixel = %v", c)
	}
	if c := out.canvas.RGBAAt(5, 5); c != (color.RGBA{A: 255}) {
		t.Errorf("left area touched: %v", c)
	}

	if _, err := out.compose("off", solidFrame(1, 1, color.RGBA{})); err == nil {
		t.Error("surface outside the window accepted")
	}
	if _, err := out.compose("missing", solidFrame(1, 1, color.RGBA{})); err == nil {
		t.Error("unknown surface accepted")
	}

	out.Remove("right")
	if c := out.canvas.RGBAAt(15, 5); c != (color.RGBA{A: 255}) {
		t.Errorf("removed surface not cleared: %v", c)
	}
}

func TestPackZPixmap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	data, err := packZPixmap(img, image.Rect(1, 1, 2, 2), 4, 4, 24)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{3, 2, 1, 0}; string(data) != string(want) {
		t.Errorf("depth 24 = %v, want %v", data, want)
	}

	data, _ = packZPixmap(img, image.Rect(1, 1, 2, 2), 4, 4, 32)
	if data[3] != 4 {
		t.Errorf("depth 32 alpha = %d", data[3])
	}

	// 3 bytes per pixel, rows padded to 4
	data, _ = packZPixmap(img, image.Rect(0, 0, 3, 2), 3, 4, 24)
	if len(data) != 24 {
		t.Errorf("len = %d, want 2 rows of 12", len(data))
	}

	if _, err := packZPixmap(img, img.Bounds(), 2, 4, 16); err == nil {
		t.Error("16bpp accepted")
	}
}
