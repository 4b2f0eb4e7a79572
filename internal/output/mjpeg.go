package output

import (
	"bytes"
	"fmt"
	"html/template"
	"image"
	"image/jpeg"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// MJPEGOutput streams each surface's frames as Motion JPEG over HTTP
type MJPEGOutput struct {
	config  Config
	running bool
	mu      sync.RWMutex

	streamsMu sync.RWMutex
	streams   map[string]*stream

	startTime time.Time
}

// stream holds the latest frame and connected clients of one surface
type stream struct {
	mu         sync.RWMutex
	lastJPEG   []byte
	lastUpdate time.Time
	frameCount uint64
	clients    map[chan []byte]struct{}
}

// StreamStats describes one surface stream
type StreamStats struct {
	SurfaceID  string    `json:"surface_id"`
	Frames     uint64    `json:"frames"`
	Clients    int       `json:"clients"`
	LastUpdate time.Time `json:"last_update"`
}

// NewMJPEGOutput creates a new MJPEG stream output
func NewMJPEGOutput(config Config) *MJPEGOutput {
	if config.JPEGQuality <= 0 || config.JPEGQuality > 100 {
		config.JPEGQuality = 85
	}
	return &MJPEGOutput{
		config:  config,
		streams: make(map[string]*stream),
	}
}

// Start initializes the MJPEG output
// Note: The HTTP handlers are registered separately via RegisterRoutes()
func (m *MJPEGOutput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG output already running")
	}

	m.running = true
	m.startTime = time.Now()

	logger.WithComponent("mjpeg").Info().
		Int("quality", m.config.JPEGQuality).
		Int("fps", m.config.FPS).
		Msg("Output started")
	return nil
}

// Stop cleanly shuts down the output and disconnects every client
func (m *MJPEGOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	m.streamsMu.Lock()
	for _, s := range m.streams {
		s.closeClients()
	}
	m.streams = make(map[string]*stream)
	m.streamsMu.Unlock()

	logger.WithComponent("mjpeg").Info().Msg("Output stopped")
	return nil
}

// Present encodes frame and broadcasts it to the surface's clients
func (m *MJPEGOutput) Present(surfaceID string, frame *image.RGBA) error {
	if !m.IsRunning() {
		return fmt.Errorf("MJPEG output not running")
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: m.config.JPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	s := m.stream(surfaceID, true)
	s.mu.Lock()
	s.lastJPEG = jpegData
	s.lastUpdate = time.Now()
	s.frameCount++
	for ch := range s.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame
		}
	}
	s.mu.Unlock()

	return nil
}

// Remove drops a surface's stream and disconnects its clients
func (m *MJPEGOutput) Remove(surfaceID string) {
	m.streamsMu.Lock()
	s, ok := m.streams[surfaceID]
	delete(m.streams, surfaceID)
	m.streamsMu.Unlock()

	if ok {
		s.closeClients()
	}
}

func (m *MJPEGOutput) stream(surfaceID string, create bool) *stream {
	m.streamsMu.RLock()
	s, ok := m.streams[surfaceID]
	m.streamsMu.RUnlock()
	if ok || !create {
		return s
	}

	m.streamsMu.Lock()
	defer m.streamsMu.Unlock()
	if s, ok = m.streams[surfaceID]; ok {
		return s
	}
	s = &stream{clients: make(map[chan []byte]struct{})}
	m.streams[surfaceID] = s
	return s
}

func (s *stream) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]struct{})
}

// Name returns the output type name
func (m *MJPEGOutput) Name() string {
	return "MJPEG HTTP Stream"
}

// IsRunning returns true if the output is active
func (m *MJPEGOutput) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastFrame returns the most recent JPEG of a surface
func (m *MJPEGOutput) LastFrame(surfaceID string) ([]byte, bool) {
	s := m.stream(surfaceID, false)
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastJPEG, s.lastJPEG != nil
}

// Stats returns per-surface stream counters ordered by surface id
func (m *MJPEGOutput) Stats() []StreamStats {
	m.streamsMu.RLock()
	stats := make([]StreamStats, 0, len(m.streams))
	for id, s := range m.streams {
		s.mu.RLock()
		stats = append(stats, StreamStats{
			SurfaceID:  id,
			Frames:     s.frameCount,
			Clients:    len(s.clients),
			LastUpdate: s.lastUpdate,
		})
		s.mu.RUnlock()
	}
	m.streamsMu.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].SurfaceID < stats[j].SurfaceID })
	return stats
}

// RegisterRoutes mounts the stream, snapshot and viewer handlers
func (m *MJPEGOutput) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stream/{id}", m.GetStreamHandler()).Methods("GET")
	router.HandleFunc("/frame/{id}.jpg", m.GetFrameHandler()).Methods("GET")
	router.HandleFunc("/", m.GetViewerHandler()).Methods("GET")
}

// GetStreamHandler returns an http.Handler for a surface's MJPEG stream
func (m *MJPEGOutput) GetStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surfaceID := mux.Vars(r)["id"]
		log := logger.WithComponent("mjpeg")

		if !m.IsRunning() {
			http.Error(w, "output not running", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Connection", "close")

		s := m.stream(surfaceID, true)
		frameChan := make(chan []byte, 2)

		s.mu.Lock()
		s.clients[frameChan] = struct{}{}
		clientCount := len(s.clients)
		last := s.lastJPEG
		s.mu.Unlock()

		log.Info().Str("surface", surfaceID).Int("clients", clientCount).Msg("Client connected")

		defer func() {
			s.mu.Lock()
			delete(s.clients, frameChan)
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Info().Str("surface", surfaceID).Int("clients", clientCount).Msg("Client disconnected")
		}()

		if last != nil {
			if err := writePart(w, last); err != nil {
				return
			}
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case jpegData, ok := <-frameChan:
				if !ok {
					return
				}
				if err := writePart(w, jpegData); err != nil {
					return
				}
			}
		}
	}
}

// writePart writes one multipart JPEG part and flushes it
func writePart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// GetFrameHandler serves the latest JPEG of a surface
func (m *MJPEGOutput) GetFrameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := m.LastFrame(mux.Vars(r)["id"])
		if !ok {
			http.Error(w, "no frame yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(data)
	}
}

var viewerTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>frostglass</title>
    <style>
        body { background: #111; color: #ccc; font-family: system-ui, sans-serif; margin: 16px; }
        .grid { display: flex; flex-wrap: wrap; gap: 16px; }
        figure { margin: 0; }
        img { image-rendering: auto; min-width: 160px; background: #000; border-radius: 12px; }
        figcaption { font-size: 12px; margin-top: 4px; }
    </style>
</head>
<body>
    <div class="grid">
    {{range .}}
        <figure>
            <img src="/stream/{{.SurfaceID}}" alt="{{.SurfaceID}}">
            <figcaption>{{.SurfaceID}} ({{.Frames}} frames)</figcaption>
        </figure>
    {{else}}
        <p>No surfaces are presenting yet.</p>
    {{end}}
    </div>
</body>
</html>`))

// GetViewerHandler returns an HTTP handler that shows every surface stream
func (m *MJPEGOutput) GetViewerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := viewerTemplate.Execute(w, m.Stats()); err != nil {
			logger.WithComponent("mjpeg").Error().Err(err).Msg("Failed to render viewer")
		}
	}
}
