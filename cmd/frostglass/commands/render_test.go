package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func writeTestPNG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
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

func readTestPNG(t *testing.T, fs afero.Fs, path string) image.Image {
	t.Helper()
	f, err := fs.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestRenderFileUsesTierScale(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestPNG(t, fs, "/in.png", 200, 100)

	// iPhone5,1 is tier2: 0.2x capture
	bounds, err := renderFile(fs, "/in.png", "/out.png", renderOptions{Style: "light", Model: "iPhone5,1", Engine: "gift"})
	if err != nil {
		t.Fatal(err)
	}
	if bounds.Size() != image.Pt(40, 20) {
		t.Errorf("output size = %v, want 40x20", bounds.Size())
	}
	if got := readTestPNG(t, fs, "/out.png").Bounds().Size(); got != image.Pt(40, 20) {
		t.Errorf("written size = %v", got)
	}
}

func TestRenderFileRectOverrideFullSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestPNG(t, fs, "/in.png", 200, 100)

	radius := 4.0
	bounds, err := renderFile(fs, "/in.png", "/out.png", renderOptions{
		Style:    "none",
		Radius:   &radius,
		Scale:    0.5,
		Rect:     "20,10,100,50",
		Engine:   "bild",
		FullSize: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if bounds.Size() != image.Pt(100, 50) {
		t.Errorf("full-size output = %v, want 100x50", bounds.Size())
	}
}

func TestRenderFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestPNG(t, fs, "/in.png", 20, 20)

	cases := map[string]renderOptions{
		"missing radius": {Style: "none"},
		"bad style":      {Style: "frosted"},
		"bad engine":     {Style: "dark", Engine: "metal"},
		"bad rect":       {Style: "dark", Rect: "1,2,3"},
		"outside":        {Style: "dark", Rect: "100,100,10,10"},
	}
	for name, opts := range cases {
		if _, err := renderFile(fs, "/in.png", "/out.png", opts); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := renderFile(fs, "/missing.png", "/out.png", renderOptions{Style: "dark"}); err == nil {
		t.Error("missing input: expected an error")
	}
}

func TestParseRect(t *testing.T) {
	r, err := parseRect(" 10, 20,30 ,40")
	if err != nil {
		t.Fatal(err)
	}
	if r != image.Rect(10, 20, 40, 60) {
		t.Errorf("rect = %v", r)
	}
	if _, err := parseRect("a,b,c,d"); err == nil {
		t.Error("non-numeric rect accepted")
	}
}

func TestPrintTier(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printTier(cmd, "iPhone10,3", true)
	out := buf.String()
	if !strings.Contains(out, "tier4") || !strings.Contains(out, "Capture scale: 0.40") {
		t.Errorf("output = %q", out)
	}
	if strings.Count(out, "*") != 1 {
		t.Errorf("expected exactly one marked tier:\n%s", out)
	}

	buf.Reset()
	printTier(cmd, "", false)
	if !strings.Contains(buf.String(), "(unknown)") || !strings.Contains(buf.String(), "0.30") {
		t.Errorf("unknown model output = %q", buf.String())
	}
}
