// Package api exposes the renderer over HTTP: surface management, hardware
// tier, stats and the output streams.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/frostglass/internal/config"
	"github.com/bryanchriswhite/frostglass/internal/effect"
	"github.com/bryanchriswhite/frostglass/internal/logger"
	"github.com/bryanchriswhite/frostglass/internal/output"
	"github.com/bryanchriswhite/frostglass/internal/render"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	renderer  *render.Manager
	configMgr *config.Manager
	output    output.Output
	upgrader  websocket.Upgrader

	// StatsInterval is the push period of the stats websocket
	StatsInterval time.Duration

	httpServer *http.Server
}

// StatsResponse is the body of /api/stats
type StatsResponse struct {
	render.Stats
	Output  string               `json:"output"`
	Streams []output.StreamStats `json:"streams,omitempty"`
}

// NewServer creates a new API server. configMgr may be nil, in which case
// surface changes are not persisted.
func NewServer(renderer *render.Manager, configMgr *config.Manager, out output.Output) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		renderer:  renderer,
		configMgr: configMgr,
		output:    out,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		StatsInterval: time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Surface management
	api.HandleFunc("/surfaces", s.handleListSurfaces).Methods("GET")
	api.HandleFunc("/surfaces", s.handleAddSurface).Methods("POST")
	api.HandleFunc("/surfaces/{id}", s.handleGetSurface).Methods("GET")
	api.HandleFunc("/surfaces/{id}", s.handleRemoveSurface).Methods("DELETE")

	// Renderer state
	api.HandleFunc("/tier", s.handleTier).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/stream", s.handleStatsStream)

	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if mjpeg, ok := s.output.(*output.MJPEGOutput); ok {
		mjpeg.RegisterRoutes(s.router)
	}
}

// Handler returns the router wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves HTTP on port until Shutdown is called
func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	logger.WithComponent("api").Info().Int("port", port).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HTTP Handlers

func (s *Server) handleListSurfaces(w http.ResponseWriter, r *http.Request) {
	surfaces := []render.ControllerStats{}
	for _, ctrl := range s.renderer.List() {
		surfaces = append(surfaces, ctrl.Stats())
	}
	writeJSON(w, http.StatusOK, surfaces)
}

func (s *Server) handleGetSurface(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.renderer.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "surface not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Stats())
}

func (s *Server) handleAddSurface(w http.ResponseWriter, r *http.Request) {
	var req config.SurfaceConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		var cfgErr *effect.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
				"field": cfgErr.Field,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.configMgr != nil {
		saved, err := s.configMgr.AddSurface(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		req = saved
	}

	desc, _ := req.Descriptor()
	ctrl, err := s.renderer.Attach(render.NewRegion(req.ID, req.Bounds()), desc)
	if err != nil {
		if s.configMgr != nil {
			s.configMgr.RemoveSurface(req.ID)
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusCreated, ctrl.Stats())
}

func (s *Server) handleRemoveSurface(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.renderer.Detach(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if s.output != nil {
		s.output.Remove(id)
	}
	if s.configMgr != nil {
		if err := s.configMgr.RemoveSurface(id); err != nil {
			logger.WithComponent("api").Warn().Err(err).Str("surface", id).Msg("Surface was not in config")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	tier := s.renderer.Tier()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tier":          int(tier),
		"name":          tier.String(),
		"capture_scale": tier.Scale(),
	})
}

func (s *Server) stats() StatsResponse {
	resp := StatsResponse{Stats: s.renderer.Stats()}
	if s.output != nil {
		resp.Output = s.output.Name()
	}
	if mjpeg, ok := s.output.(*output.MJPEGOutput); ok {
		resp.Streams = mjpeg.Stats()
	}
	return resp
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}

func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reads only detect the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.StatsInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.stats()); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		http.Error(w, "no configuration loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}
