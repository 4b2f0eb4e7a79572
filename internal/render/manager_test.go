package render

import (
	"image"
	"testing"

	"github.com/bryanchriswhite/frostglass/internal/effect"
	"github.com/bryanchriswhite/frostglass/internal/hardware"
)

func TestManagerAttachDetach(t *testing.T) {
	h := newHarness(splitSource(20, 20), hardware.Fixed(hardware.Tier1))
	m := NewManager(h.env)
	d := mustDescriptor(t, effect.StyleLight, 8, 1.25, 0)

	if _, err := m.Attach(NewRegion("b", image.Rect(0, 0, 5, 5)), d); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Attach(NewRegion("a", image.Rect(5, 5, 10, 10)), d); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Attach(NewRegion("a", image.Rect(0, 0, 1, 1)), d); err == nil {
		t.Error("duplicate id should fail")
	}

	list := m.List()
	if len(list) != 2 || list[0].Surface().ID() != "a" || list[1].Surface().ID() != "b" {
		t.Fatalf("List returned %d controllers in wrong order", len(list))
	}

	ctrl, ok := m.Get("a")
	if !ok {
		t.Fatal("Get(a) failed")
	}
	if r, ok := m.SurfaceBounds("a"); !ok || r != image.Rect(5, 5, 10, 10) {
		t.Errorf("SurfaceBounds(a) = %v, %v", r, ok)
	}
	if err := m.Detach("a"); err != nil {
		t.Fatal(err)
	}
	if ctrl.State() != Inactive {
		t.Error("detached controller still active")
	}
	if err := m.Detach("a"); err == nil {
		t.Error("detaching an unknown surface should fail")
	}
	if _, ok := m.SurfaceBounds("a"); ok {
		t.Error("detached surface still has bounds")
	}

	m.DetachAll()
	if len(m.List()) != 0 || h.link.Subscribers() != 0 {
		t.Error("DetachAll left surfaces behind")
	}
}

func TestManagerStats(t *testing.T) {
	h := newHarness(splitSource(20, 20), hardware.Fixed(hardware.Tier2))
	m := NewManager(h.env)
	d := mustDescriptor(t, effect.StyleRegular, 50, 1.7, 0)

	if _, err := m.Attach(NewRegion("s", image.Rect(0, 0, 20, 20)), d); err != nil {
		t.Fatal(err)
	}
	h.link.Step()

	s := m.Stats()
	if s.Scale != 0.2 || s.Tier != hardware.Tier2.String() {
		t.Errorf("tier = %s scale = %v", s.Tier, s.Scale)
	}
	if s.Cache.Captures != 1 {
		t.Errorf("captures = %d, want 1", s.Cache.Captures)
	}
	if len(s.Surfaces) != 1 || s.Surfaces[0].Frames != 1 || s.Surfaces[0].Style != "regular" {
		t.Errorf("surfaces = %+v", s.Surfaces)
	}
}

func TestNewRegionGeneratesID(t *testing.T) {
	a := NewRegion("", image.Rect(10, 10, 0, 0))
	b := NewRegion("", image.Rect(0, 0, 1, 1))
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("generated ids %q and %q", a.ID(), b.ID())
	}
	if a.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Errorf("bounds not canonicalized: %v", a.Bounds())
	}
}
