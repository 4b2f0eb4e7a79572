package output

import (
	"image/color"
	"testing"

	"github.com/gdamore/tcell/v2"
)

type cell struct {
	ch    rune
	style tcell.Style
}

// stubScreen records cell writes
type stubScreen struct {
	width, height int
	inited        bool
	finished      bool
	shows         int
	content       map[[2]int]cell
}

func newStubScreen(w, h int) *stubScreen {
	return &stubScreen{width: w, height: h, content: make(map[[2]int]cell)}
}

func (s *stubScreen) Init() error      { s.inited = true; return nil }
func (s *stubScreen) Fini()            { s.finished = true }
func (s *stubScreen) Size() (int, int) { return s.width, s.height }
func (s *stubScreen) Show()            { s.shows++ }
func (s *stubScreen) Clear()           { s.content = make(map[[2]int]cell) }

func (s *stubScreen) SetContent(x, y int, mainc rune, combc []rune, style tcell.Style) {
	s.content[[2]int{x, y}] = cell{ch: mainc, style: style}
}

func TestTerminalPresentDrawsHalfBlocks(t *testing.T) {
	screen := newStubScreen(80, 24)
	out := NewTerminalOutput(screen, Config{CellWidth: 4, CellHeight: 2})
	if err := out.Start(); err != nil {
		t.Fatal(err)
	}
	if !screen.inited {
		t.Fatal("screen not initialized")
	}

	if err := out.Present("a", solidFrame(4, 4, color.RGBA{R: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	if len(screen.content) != 8 || screen.shows != 1 {
		t.Fatalf("drew %d cells with %d shows, want 8 and 1", len(screen.content), screen.shows)
	}

	c := screen.content[[2]int{0, 0}]
	if c.ch != halfBlock {
		t.Errorf("cell rune = %q", c.ch)
	}
	fg, bg, _ := c.style.Decompose()
	if r, g, b := fg.RGB(); r != 255 || g != 0 || b != 0 {
		t.Errorf("foreground = %d,%d,%d, want red", r, g, b)
	}
	if r, _, _ := bg.RGB(); r != 255 {
		t.Errorf("background red = %d", r)
	}

	// second surface goes in the next tile to the right
	if err := out.Present("b", solidFrame(4, 4, color.RGBA{B: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	c = screen.content[[2]int{5, 0}]
	if fg, _, _ := c.style.Decompose(); fg != tcell.NewRGBColor(0, 0, 255) {
		t.Errorf("second tile foreground = %v", fg)
	}

	out.Remove("a")
	c = screen.content[[2]int{0, 0}]
	if fg, _, _ := c.style.Decompose(); fg != tcell.NewRGBColor(0, 0, 255) {
		t.Error("remaining tile did not move into the first slot")
	}

	if err := out.Stop(); err != nil {
		t.Fatal(err)
	}
	if !screen.finished {
		t.Error("screen not finalized")
	}
	if err := out.Present("a", solidFrame(1, 1, color.RGBA{})); err == nil {
		t.Error("Present after Stop should fail")
	}
}
