// Package window discovers top-level X11 windows that can serve as a
// capture backdrop.
package window

import (
	"encoding/binary"
	"image"
	"sort"
	"strings"
)

// Info describes a top-level window
type Info struct {
	ID       uint32          `json:"id"`
	Title    string          `json:"title"`
	Class    string          `json:"class"`
	PID      int             `json:"pid,omitempty"`
	Geometry image.Rectangle `json:"geometry"`
	Focused  bool            `json:"focused"`
}

// parseWindowList decodes a 32-bit window id array property
func parseWindowList(value []byte) []uint32 {
	ids := make([]uint32, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		ids = append(ids, binary.LittleEndian.Uint32(value[i:]))
	}
	return ids
}

// parseClass extracts the class from WM_CLASS ("instance\0class\0"),
// falling back to the instance name
func parseClass(raw string) string {
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

// userWindows drops windows with neither title nor class and orders the rest
// by class then title
func userWindows(infos []*Info) []*Info {
	out := make([]*Info, 0, len(infos))
	for _, info := range infos {
		if info.Title == "" && info.Class == "" {
			continue
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return strings.ToLower(out[i].Class) < strings.ToLower(out[j].Class)
		}
		return out[i].Title < out[j].Title
	})
	return out
}
