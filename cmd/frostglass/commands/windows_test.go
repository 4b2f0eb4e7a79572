package commands

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/bryanchriswhite/frostglass/internal/window"
)

func TestPrintWindows(t *testing.T) {
	infos := []*window.Info{
		{ID: 0x4a00007, Class: "Firefox", Title: "Docs", Geometry: image.Rect(10, 20, 810, 620), Focused: true},
	}

	var buf bytes.Buffer
	if err := printWindows(&buf, infos, "table"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"0x4a00007*", "Firefox", "800x600+10+20", "Docs"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := printWindows(&buf, infos, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"id": 77594631`) {
		t.Errorf("json = %s", buf.String())
	}

	if err := printWindows(&buf, infos, "xml"); err == nil {
		t.Error("unknown format accepted")
	}
}
