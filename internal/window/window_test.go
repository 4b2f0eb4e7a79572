package window

import "testing"

func TestParseWindowList(t *testing.T) {
	ids := parseWindowList([]byte{0x01, 0x00, 0x40, 0x00, 0xff, 0xff, 0xff, 0xff, 0x02})
	if len(ids) != 2 || ids[0] != 0x400001 || ids[1] != 0xffffffff {
		t.Fatalf("ids = %#v", ids)
	}
}

func TestParseClass(t *testing.T) {
	tests := map[string]string{
		"navigator\x00Firefox\x00": "Firefox",
		"xterm\x00\x00":            "xterm",
		"":                         "",
	}
	for raw, want := range tests {
		if got := parseClass(raw); got != want {
			t.Errorf("parseClass(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestUserWindows(t *testing.T) {
	got := userWindows([]*Info{
		{ID: 1, Class: "xterm", Title: "b"},
		{ID: 2},
		{ID: 3, Class: "Firefox", Title: "a"},
		{ID: 4, Class: "xterm", Title: "a"},
	})
	want := []uint32{3, 4, 1}
	if len(got) != len(want) {
		t.Fatalf("got %d windows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("window %d = %d, want %d", i, got[i].ID, id)
		}
	}
}
