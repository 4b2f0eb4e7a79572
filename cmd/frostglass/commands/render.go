package commands

import (
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/frostglass/internal/capture"
	"github.com/bryanchriswhite/frostglass/internal/clock"
	"github.com/bryanchriswhite/frostglass/internal/config"
	"github.com/bryanchriswhite/frostglass/internal/filter"
	"github.com/bryanchriswhite/frostglass/internal/hardware"
	"github.com/bryanchriswhite/frostglass/internal/logger"
	"github.com/bryanchriswhite/frostglass/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render INPUT OUTPUT",
	Short: "Render one frame of a surface over an image",
	Long: `Run a single tick of the pipeline over an image file and write the
surface's output as PNG. The output has the capture resolution unless
--full-size is given.`,
	Example: `  # Light style over the whole image
  frostglass render wall.png out.png --style light

  # Explicit parameters over a region, captured at half resolution
  frostglass render wall.png out.png --style none --radius 12 --vibrancy 1.4 --rect 100,50,400,300 --scale 0.5

  # Classify as a specific device
  frostglass render wall.png out.png --style dark --model iPhone8,1 --full-size`,
	Args: cobra.ExactArgs(2),
	RunE: runRender,
}

// renderOptions are the inputs of a one-shot render
type renderOptions struct {
	Style    string
	Radius   *float64
	Vibrancy *float64
	Scale    float64
	Model    string
	Rect     string
	Engine   string
	FullSize bool
}

var renderOpts renderOptions

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOpts.Style, "style", "s", "regular", "style (none, light, regular, dark)")
	renderCmd.Flags().Float64("radius", 0, "blur radius in full-resolution pixels (default: style preset)")
	renderCmd.Flags().Float64("vibrancy", 0, "saturation factor (default: style preset)")
	renderCmd.Flags().Float64Var(&renderOpts.Scale, "scale", 0, "capture scale override in (0, 1]")
	renderCmd.Flags().StringVar(&renderOpts.Model, "model", "", "device model identifier (default: detected)")
	renderCmd.Flags().StringVar(&renderOpts.Rect, "rect", "", "surface rectangle as x,y,width,height (default: whole image)")
	renderCmd.Flags().StringVar(&renderOpts.Engine, "engine", "gift", "blur engine (gift or bild)")
	renderCmd.Flags().BoolVar(&renderOpts.FullSize, "full-size", false, "scale the output back to the surface size")
}

func runRender(cmd *cobra.Command, args []string) error {
	if _, _, err := loadConfig(); err != nil {
		return err
	}

	opts := renderOpts
	if f := cmd.Flags().Lookup("radius"); f.Changed {
		v, _ := cmd.Flags().GetFloat64("radius")
		opts.Radius = &v
	}
	if f := cmd.Flags().Lookup("vibrancy"); f.Changed {
		v, _ := cmd.Flags().GetFloat64("vibrancy")
		opts.Vibrancy = &v
	}
	if opts.Model == "" {
		opts.Model = hardware.DetectModel("")
	}

	bounds, err := renderFile(afero.NewOsFs(), args[0], args[1], opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", args[1], bounds.Dx(), bounds.Dy())
	return nil
}

// renderFile runs one tick over the image at in and writes the surface
// output to out
func renderFile(fs afero.Fs, in, out string, opts renderOptions) (image.Rectangle, error) {
	img, err := capture.LoadImage(fs, in)
	if err != nil {
		return image.Rectangle{}, err
	}
	src := capture.NewImageSource(in, img)

	rect := src.Bounds()
	if opts.Rect != "" {
		if rect, err = parseRect(opts.Rect); err != nil {
			return image.Rectangle{}, err
		}
	}

	surface := config.SurfaceConfig{
		ID:                   "render",
		X:                    rect.Min.X,
		Y:                    rect.Min.Y,
		Width:                rect.Dx(),
		Height:               rect.Dy(),
		Style:                opts.Style,
		BlurRadius:           opts.Radius,
		Vibrancy:             opts.Vibrancy,
		CaptureScaleOverride: opts.Scale,
	}
	if err := surface.Validate(); err != nil {
		return image.Rectangle{}, err
	}
	desc, _ := surface.Descriptor()

	engine, err := filter.EngineByName(opts.Engine)
	if err != nil {
		return image.Rectangle{}, err
	}

	var frame *image.RGBA
	link := clock.NewDisplayLink(1)
	env := &render.Env{
		Clock:      link,
		Cache:      capture.NewSharedFrameCache(capture.NewImageCapturer(), link),
		Source:     src,
		Classifier: hardware.ModelClassifier{Model: opts.Model},
		Engine:     engine,
		Presenter: render.PresenterFunc(func(_ string, f *image.RGBA) error {
			frame = f
			return nil
		}),
	}

	ctrl := render.NewController(env, render.NewRegion(surface.ID, surface.Bounds()), desc)
	if err := ctrl.Attach(); err != nil {
		return image.Rectangle{}, err
	}
	defer ctrl.Detach()

	link.Step()
	if frame == nil {
		stats := ctrl.Stats()
		return image.Rectangle{}, fmt.Errorf("surface produced no frame (capture misses %d, failures %d)", stats.CaptureMisses, stats.Failures)
	}

	logger.WithComponent("render").Debug().
		Float64("scale", ctrl.LastScale()).
		Str("effect", desc.String()).
		Msg("Rendered frame")

	result := frame
	if opts.FullSize && frame.Bounds().Size() != rect.Size() {
		result = image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.CatmullRom.Scale(result, result.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	}

	f, err := fs.Create(out)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()
	if err := png.Encode(f, result); err != nil {
		return image.Rectangle{}, fmt.Errorf("failed to encode %s: %w", out, err)
	}
	return result.Bounds(), nil
}

// parseRect parses "x,y,width,height"
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("invalid rect %q (want x,y,width,height)", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid rect %q: %w", s, err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
