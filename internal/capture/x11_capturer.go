package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// X11Capturer captures windows using X11/XWayland
type X11Capturer struct {
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	mu               sync.Mutex
}

// NewX11Capturer connects to the X server named by $DISPLAY
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Capturer{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}, nil
}

// Start initializes the composite extension if the server has it
func (c *X11Capturer) Start() error {
	log := logger.WithComponent("x11-capturer")

	if err := composite.Init(c.conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - obscured windows capture what is on top")
		c.compositeEnabled = false
	} else {
		c.compositeEnabled = true
		log.Info().Msg("Composite extension initialized")
	}

	return nil
}

// Stop closes the X11 connection
func (c *X11Capturer) Stop() error {
	c.conn.Close()
	return nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "X11"
}

// Window returns a capture source for an X11 window. id 0 means the root window.
func (c *X11Capturer) Window(id uint32) *X11Window {
	win := xproto.Window(id)
	if id == 0 {
		win = c.root
	}
	return &X11Window{capturer: c, win: win}
}

// X11Window is a capturable X11 window
type X11Window struct {
	capturer *X11Capturer
	win      xproto.Window
}

// ID returns the window id as a string
func (w *X11Window) ID() string {
	return fmt.Sprintf("x11:0x%x", uint32(w.win))
}

// Bounds returns the window geometry, or an empty rectangle if the window is
// gone or unmapped
func (w *X11Window) Bounds() image.Rectangle {
	geom, err := xproto.GetGeometry(w.capturer.conn, xproto.Drawable(w.win)).Reply()
	if err != nil {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, int(geom.Width), int(geom.Height))
}

// Capture grabs the window at full resolution and resamples it to size
func (c *X11Capturer) Capture(src Source, size image.Point) (*image.RGBA, error) {
	w, ok := src.(*X11Window)
	if !ok || w.capturer != c {
		return nil, fmt.Errorf("source %s is not an X11 window on this connection: %w", src.ID(), ErrCaptureUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	attrs, err := xproto.GetWindowAttributes(c.conn, w.win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window attributes: %w", err)
	}
	if w.win != c.root && attrs.MapState != xproto.MapStateViewable {
		return nil, fmt.Errorf("window %s is not viewable: %w", w.ID(), ErrCaptureUnavailable)
	}

	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(w.win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}
	if geom.Width == 0 || geom.Height == 0 {
		return nil, fmt.Errorf("window %s has no area: %w", w.ID(), ErrCaptureUnavailable)
	}

	full, err := c.captureDrawable(w.win, geom)
	if err != nil {
		return nil, err
	}
	return Resample(full, size), nil
}

// captureDrawable reads a window's content, going through a Composite pixmap
// when available
func (c *X11Capturer) captureDrawable(win xproto.Window, geom *xproto.GetGeometryReply) (*image.RGBA, error) {
	log := logger.WithComponent("x11-capturer")
	drawable := xproto.Drawable(win)

	if c.compositeEnabled && win != c.root {
		if err := composite.RedirectWindowChecked(c.conn, win, composite.RedirectAutomatic).Check(); err != nil {
			log.Debug().
				Err(err).
				Uint32("window_id", uint32(win)).
				Msg("Composite redirect failed, capturing window directly")
		} else {
			defer composite.UnredirectWindow(c.conn, win, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(c.conn); err == nil {
				if err := composite.NameWindowPixmapChecked(c.conn, win, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(c.conn, pixmap)
				}
			}
		}
	}

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		0, 0,
		geom.Width, geom.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	depth := int(c.screen.RootDepth)
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported color depth %d: %w", depth, ErrCaptureUnavailable)
	}

	return convertBGRX(reply.Data, int(geom.Width), int(geom.Height)), nil
}

// convertBGRX converts 32bpp ZPixmap data (B, G, R, pad) to opaque RGBA
func convertBGRX(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := min(len(data), len(img.Pix))
	for i := 0; i+3 < n; i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 255
	}
	return img
}
