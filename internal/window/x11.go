package window

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Lister queries the X server for top-level windows
type Lister struct {
	conn *xgb.Conn
	root xproto.Window
}

// NewLister connects to the X server
func NewLister() (*Lister, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	return &Lister{
		conn: conn,
		root: xproto.Setup(conn).DefaultScreen(conn).Root,
	}, nil
}

// Close closes the X connection
func (l *Lister) Close() {
	l.conn.Close()
}

// List returns the user windows from _NET_CLIENT_LIST, or the root window's
// children when the window manager does not publish one
func (l *Lister) List() ([]*Info, error) {
	log := logger.WithComponent("window")

	ids, err := l.clientList()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("_NET_CLIENT_LIST unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(l.conn, l.root).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query window tree: %w", err)
		}
		ids = make([]uint32, len(tree.Children))
		for i, child := range tree.Children {
			ids[i] = uint32(child)
		}
	}

	focused, _ := l.focusedID()
	infos := make([]*Info, 0, len(ids))
	for _, id := range ids {
		info := l.info(xproto.Window(id))
		info.Focused = id == focused
		infos = append(infos, info)
	}
	return userWindows(infos), nil
}

// Focused returns the window holding input focus
func (l *Lister) Focused() (*Info, error) {
	id, err := l.focusedID()
	if err != nil {
		return nil, err
	}
	info := l.info(xproto.Window(id))
	info.Focused = true
	return info, nil
}

func (l *Lister) focusedID() (uint32, error) {
	reply, err := xproto.GetInputFocus(l.conn).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get input focus: %w", err)
	}
	return uint32(reply.Focus), nil
}

func (l *Lister) clientList() ([]uint32, error) {
	atom, err := l.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	value, err := l.property(l.root, atom, xproto.GetPropertyTypeAny)
	if err != nil {
		return nil, err
	}
	return parseWindowList(value), nil
}

// info collects what the window exposes; missing properties stay empty
func (l *Lister) info(win xproto.Window) *Info {
	info := &Info{ID: uint32(win)}

	if geom, err := xproto.GetGeometry(l.conn, xproto.Drawable(win)).Reply(); err == nil {
		info.Geometry = image.Rect(
			int(geom.X), int(geom.Y),
			int(geom.X)+int(geom.Width), int(geom.Y)+int(geom.Height),
		)
	}

	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if atom, err := l.atom(name); err == nil {
			if value, err := l.property(win, atom, xproto.GetPropertyTypeAny); err == nil && len(value) > 0 {
				info.Title = string(value)
				break
			}
		}
	}

	if atom, err := l.atom("WM_CLASS"); err == nil {
		if value, err := l.property(win, atom, xproto.GetPropertyTypeAny); err == nil {
			info.Class = parseClass(string(value))
		}
	}

	if atom, err := l.atom("_NET_WM_PID"); err == nil {
		if value, err := l.property(win, atom, xproto.AtomCardinal); err == nil && len(value) >= 4 {
			info.PID = int(binary.LittleEndian.Uint32(value))
		}
	}
	return info
}

func (l *Lister) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(l.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	if reply.Atom == xproto.AtomNone {
		return 0, fmt.Errorf("atom %s not interned", name)
	}
	return reply.Atom, nil
}

func (l *Lister) property(win xproto.Window, atom, typ xproto.Atom) ([]byte, error) {
	reply, err := xproto.GetProperty(l.conn, false, win, atom, typ, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}
