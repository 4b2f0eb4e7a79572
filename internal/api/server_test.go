package api

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"

	"github.com/bryanchriswhite/frostglass/internal/capture"
	"github.com/bryanchriswhite/frostglass/internal/clock"
	"github.com/bryanchriswhite/frostglass/internal/config"
	"github.com/bryanchriswhite/frostglass/internal/hardware"
	"github.com/bryanchriswhite/frostglass/internal/output"
	"github.com/bryanchriswhite/frostglass/internal/render"
)

type testServer struct {
	server   *Server
	link     *clock.DisplayLink
	renderer *render.Manager
	mjpeg    *output.MJPEGOutput
	cfg      *config.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	link := clock.NewDisplayLink(30)
	mjpeg := output.NewMJPEGOutput(output.Config{})
	if err := mjpeg.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mjpeg.Stop() })

	renderer := render.NewManager(&render.Env{
		Clock:      link,
		Cache:      capture.NewSharedFrameCache(capture.NewImageCapturer(), link),
		Source:     capture.NewImageSource("backdrop", img),
		Classifier: hardware.Fixed(hardware.Tier2),
		Presenter:  mjpeg,
	})
	t.Cleanup(renderer.DetachAll)

	cfg, err := config.NewManagerFs(afero.NewMemMapFs(), "/config.yaml")
	if err != nil {
		t.Fatal(err)
	}

	return &testServer{
		server:   NewServer(renderer, cfg, mjpeg),
		link:     link,
		renderer: renderer,
		mjpeg:    mjpeg,
		cfg:      cfg,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSurfaceLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/surfaces", `{"id":"card","x":10,"y":10,"width":100,"height":50,"style":"light"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d: %s", rec.Code, rec.Body.String())
	}
	var created render.ControllerStats
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.SurfaceID != "card" || created.State != "active" || created.Radius != 8 {
		t.Errorf("created = %+v", created)
	}
	if len(ts.cfg.Get().Surfaces) != 1 {
		t.Error("surface not persisted")
	}

	ts.link.Step()

	rec = ts.do(t, "GET", "/api/surfaces/card", "")
	var got render.ControllerStats
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Frames != 1 || got.LastScale != 0.2 {
		t.Errorf("after one tick: %+v", got)
	}

	rec = ts.do(t, "GET", "/frame/card.jpg", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("frame status = %d", rec.Code)
	}

	if rec := ts.do(t, "POST", "/api/surfaces", `{"id":"card","width":1,"height":1,"style":"dark"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate POST status = %d", rec.Code)
	}

	if rec := ts.do(t, "DELETE", "/api/surfaces/card", ""); rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if rec := ts.do(t, "DELETE", "/api/surfaces/card", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d", rec.Code)
	}
	if len(ts.cfg.Get().Surfaces) != 0 {
		t.Error("surface not removed from config")
	}
	if _, ok := ts.mjpeg.LastFrame("card"); ok {
		t.Error("stream not removed")
	}
}

func TestAddSurfaceValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/surfaces", `{"width":10,"height":10,"style":"dark","vibrancy":0}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["field"] != "vibrancy" {
		t.Errorf("field = %q", body["field"])
	}

	if rec := ts.do(t, "POST", "/api/surfaces", `{"width":0,"height":10,"style":"dark"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("zero width status = %d", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/surfaces", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d", rec.Code)
	}
	if len(ts.renderer.List()) != 0 {
		t.Error("invalid surface was attached")
	}
}

func TestTierAndStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/tier", "")
	var tier map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &tier)
	if tier["capture_scale"] != 0.2 || tier["tier"] != float64(2) {
		t.Errorf("tier = %v", tier)
	}

	ts.do(t, "POST", "/api/surfaces", `{"id":"a","width":50,"height":50,"style":"regular"}`)
	ts.do(t, "POST", "/api/surfaces", `{"id":"b","x":100,"width":50,"height":50,"style":"dark"}`)
	ts.link.Step()

	rec = ts.do(t, "GET", "/api/stats", "")
	var stats StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Cache.Captures != 1 || len(stats.Surfaces) != 2 || len(stats.Streams) != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Output != "MJPEG HTTP Stream" {
		t.Errorf("output = %q", stats.Output)
	}
}

func TestStatsStream(t *testing.T) {
	ts := newTestServer(t)
	ts.server.StatsInterval = 10 * time.Millisecond
	srv := httptest.NewServer(ts.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2; i++ {
		var stats StatsResponse
		if err := conn.ReadJSON(&stats); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if stats.Tier != hardware.Tier2.String() {
			t.Errorf("tier = %q", stats.Tier)
		}
	}
}

func TestHealthAndCORS(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/health", "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"healthy"`)) {
		t.Errorf("health body = %s", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	rec = ts.do(t, "OPTIONS", "/api/surfaces", "")
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d", rec.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/api/config", "")
	var cfg config.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("server_port = %d", cfg.ServerPort)
	}
}
