package output

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Screen is the subset of tcell.Screen the terminal output draws through
type Screen interface {
	Init() error
	Fini()
	Size() (int, int)
	Show()
	Clear()
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
}

// halfBlock shows the top pixel as foreground and the bottom one as background
const halfBlock = '▀'

// TerminalOutput draws each surface as a tile of half-block cells. Tiles are
// laid out left to right in surface id order and wrap at the screen edge.
type TerminalOutput struct {
	config Config
	screen Screen

	mu      sync.Mutex
	running bool
	order   []string
	frames  map[string]*image.RGBA
}

// NewTerminalOutput creates a terminal output drawing to screen. A nil screen
// opens the process terminal on Start.
func NewTerminalOutput(screen Screen, config Config) *TerminalOutput {
	if config.CellWidth <= 0 {
		config.CellWidth = 32
	}
	if config.CellHeight <= 0 {
		config.CellHeight = 12
	}
	return &TerminalOutput{
		config: config,
		screen: screen,
		frames: make(map[string]*image.RGBA),
	}
}

// Start initializes the screen
func (t *TerminalOutput) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("terminal output already running")
	}
	if t.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		t.screen = s
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to init terminal: %w", err)
	}
	t.running = true

	logger.WithComponent("terminal").Info().
		Int("cell_width", t.config.CellWidth).
		Int("cell_height", t.config.CellHeight).
		Msg("Output started")
	return nil
}

// Stop restores the terminal
func (t *TerminalOutput) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	t.screen.Fini()
	return nil
}

// Present scales frame into its tile and refreshes the screen
func (t *TerminalOutput) Present(surfaceID string, frame *image.RGBA) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return fmt.Errorf("terminal output not running")
	}

	if _, ok := t.frames[surfaceID]; !ok {
		t.order = append(t.order, surfaceID)
		sort.Strings(t.order)
	}

	tile := image.NewRGBA(image.Rect(0, 0, t.config.CellWidth, t.config.CellHeight*2))
	if frame.Bounds().Size() == tile.Bounds().Size() {
		draw.Draw(tile, tile.Bounds(), frame, frame.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(tile, tile.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	}
	t.frames[surfaceID] = tile

	t.redraw()
	return nil
}

// Remove clears a surface's tile
func (t *TerminalOutput) Remove(surfaceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.frames[surfaceID]; !ok {
		return
	}
	delete(t.frames, surfaceID)
	for i, id := range t.order {
		if id == surfaceID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if t.running {
		t.screen.Clear()
		t.redraw()
	}
}

// tileOrigin returns the top-left cell of the i-th tile. Caller holds mu.
func (t *TerminalOutput) tileOrigin(i int) (int, int) {
	width, _ := t.screen.Size()
	perRow := width / (t.config.CellWidth + 1)
	if perRow < 1 {
		perRow = 1
	}
	col, row := i%perRow, i/perRow
	return col * (t.config.CellWidth + 1), row * (t.config.CellHeight + 1)
}

// redraw paints every tile. Caller holds mu.
func (t *TerminalOutput) redraw() {
	for i, id := range t.order {
		x0, y0 := t.tileOrigin(i)
		tile := t.frames[id]
		for cy := 0; cy < t.config.CellHeight; cy++ {
			for cx := 0; cx < t.config.CellWidth; cx++ {
				top := tile.RGBAAt(cx, cy*2)
				bottom := tile.RGBAAt(cx, cy*2+1)
				style := tcell.StyleDefault.
					Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
					Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
				t.screen.SetContent(x0+cx, y0+cy, halfBlock, nil, style)
			}
		}
	}
	t.screen.Show()
}

// Name returns the output type name
func (t *TerminalOutput) Name() string {
	return "Terminal"
}

// IsRunning returns true if the output is active
func (t *TerminalOutput) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
