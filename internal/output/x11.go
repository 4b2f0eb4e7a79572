package output

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Layout reports where a surface sits in backdrop coordinates
type Layout interface {
	SurfaceBounds(surfaceID string) (image.Rectangle, bool)
}

// X11Output shows every surface at its own position in an X11 window the
// size of the backdrop. Frames are scaled up from capture resolution.
type X11Output struct {
	config Config
	layout Layout
	size   image.Point

	mu      sync.Mutex
	running bool
	canvas  *image.RGBA
	placed  map[string]image.Rectangle

	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext
}

// NewX11Output creates an X11 window output of the given size
func NewX11Output(config Config, size image.Point, layout Layout) *X11Output {
	canvas := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return &X11Output{
		config: config,
		layout: layout,
		size:   size,
		canvas: canvas,
		placed: make(map[string]image.Rectangle),
	}
}

// SetLayout sets where surfaces are placed
func (x *X11Output) SetLayout(layout Layout) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.layout = layout
}

// Start creates and maps the window
func (x *X11Output) Start() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.running {
		return fmt.Errorf("X11 output already running")
	}
	if x.size.X <= 0 || x.size.Y <= 0 {
		return fmt.Errorf("invalid window size %v", x.size)
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	x.conn = conn
	x.screen = xproto.Setup(conn).DefaultScreen(conn)

	x.window, err = xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create window ID: %w", err)
	}

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}
	err = xproto.CreateWindowChecked(
		conn,
		x.screen.RootDepth,
		x.window,
		x.screen.Root,
		0, 0,
		uint16(x.size.X), uint16(x.size.Y),
		0,
		xproto.WindowClassInputOutput,
		x.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create window: %w", err)
	}

	if err := x.setWindowTitle("frostglass"); err != nil {
		logger.WithComponent("x11-output").Warn().Err(err).Msg("Failed to set window title")
	}

	if err := xproto.MapWindowChecked(conn, x.window).Check(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to map window: %w", err)
	}

	x.gc, err = xproto.NewGcontextId(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(conn, x.gc, xproto.Drawable(x.window), 0, nil).Check(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create GC: %w", err)
	}
	conn.Sync()

	x.running = true
	logger.WithComponent("x11-output").Info().
		Int("width", x.size.X).
		Int("height", x.size.Y).
		Uint32("window_id", uint32(x.window)).
		Msg("Output window created")
	return nil
}

// Stop destroys the window and closes the connection
func (x *X11Output) Stop() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.running {
		return nil
	}
	x.running = false

	xproto.FreeGC(x.conn, x.gc)
	xproto.DestroyWindow(x.conn, x.window)
	x.conn.Sync()
	x.conn.Close()

	logger.WithComponent("x11-output").Info().Msg("Output window closed")
	return nil
}

// Present draws frame over its surface's area and pushes that area
func (x *X11Output) Present(surfaceID string, frame *image.RGBA) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.running {
		return fmt.Errorf("X11 output not running")
	}
	dirty, err := x.compose(surfaceID, frame)
	if err != nil {
		return err
	}
	return x.putImage(dirty)
}

// compose scales frame into the surface's rectangle on the canvas and returns
// the touched area. Caller holds mu.
func (x *X11Output) compose(surfaceID string, frame *image.RGBA) (image.Rectangle, error) {
	if x.layout == nil {
		return image.Rectangle{}, fmt.Errorf("no surface layout")
	}
	r, ok := x.layout.SurfaceBounds(surfaceID)
	if !ok {
		return image.Rectangle{}, fmt.Errorf("unknown surface %s", surfaceID)
	}
	r = r.Intersect(x.canvas.Bounds())
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("surface %s is outside the window", surfaceID)
	}

	if frame.Bounds().Size() == r.Size() {
		draw.Draw(x.canvas, r, frame, frame.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(x.canvas, r, frame, frame.Bounds(), draw.Src, nil)
	}
	x.placed[surfaceID] = r
	return r, nil
}

// Remove blanks the area last drawn for surfaceID
func (x *X11Output) Remove(surfaceID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	r, ok := x.placed[surfaceID]
	if !ok {
		return
	}
	delete(x.placed, surfaceID)
	draw.Draw(x.canvas, r, image.NewUniform(color.Black), image.Point{}, draw.Src)
	if x.running && !r.Empty() {
		if err := x.putImage(r); err != nil {
			logger.WithComponent("x11-output").Warn().Err(err).Str("surface", surfaceID).Msg("Failed to clear surface")
		}
	}
}

// putImage sends the canvas area r to the window. Caller holds mu.
func (x *X11Output) putImage(r image.Rectangle) error {
	depth := x.screen.RootDepth

	var bitsPerPixel, scanlinePad uint8
	for _, format := range xproto.Setup(x.conn).PixmapFormats {
		if format.Depth == depth {
			bitsPerPixel = format.BitsPerPixel
			scanlinePad = format.ScanlinePad
			break
		}
	}
	if bitsPerPixel == 0 {
		return fmt.Errorf("no format found for depth %d", depth)
	}

	data, err := packZPixmap(x.canvas, r, int(bitsPerPixel)/8, int(scanlinePad)/8, depth)
	if err != nil {
		return err
	}

	err = xproto.PutImageChecked(
		x.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(x.window),
		x.gc,
		uint16(r.Dx()), uint16(r.Dy()),
		int16(r.Min.X), int16(r.Min.Y),
		0,
		depth,
		data,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to put image: %w", err)
	}
	return nil
}

// packZPixmap converts the area r of img into X11 ZPixmap rows of
// bytesPerPixel pixels padded to padBytes
func packZPixmap(img *image.RGBA, r image.Rectangle, bytesPerPixel, padBytes int, depth byte) ([]byte, error) {
	if bytesPerPixel != 3 && bytesPerPixel != 4 {
		return nil, fmt.Errorf("unsupported bytes per pixel: %d", bytesPerPixel)
	}
	if padBytes <= 0 {
		padBytes = 1
	}

	width, height := r.Dx(), r.Dy()
	unpadded := width * bytesPerPixel
	stride := ((unpadded + padBytes - 1) / padBytes) * padBytes
	data := make([]byte, stride*height)

	for y := 0; y < height; y++ {
		row := y * stride
		src := img.PixOffset(r.Min.X, r.Min.Y+y)
		for x := 0; x < width; x++ {
			s := src + x*4
			d := row + x*bytesPerPixel
			// BGR(x), matching the visual masks
			data[d] = img.Pix[s+2]
			data[d+1] = img.Pix[s+1]
			data[d+2] = img.Pix[s]
			if bytesPerPixel == 4 && depth == 32 {
				data[d+3] = img.Pix[s+3]
			}
		}
	}
	return data, nil
}

// setWindowTitle sets _NET_WM_NAME
func (x *X11Output) setWindowTitle(title string) error {
	titleAtom, err := x.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := x.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(
		x.conn,
		xproto.PropModeReplace,
		x.window,
		titleAtom,
		utf8Atom,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check()
}

func (x *X11Output) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(x.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// Name returns the output type name
func (x *X11Output) Name() string {
	return "X11 Window"
}

// IsRunning returns true if the window is shown
func (x *X11Output) IsRunning() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.running
}
