package monitor

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/kitti.review/internal/httputil"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
	"github.com/banshee-data/kitti.review/internal/monitoring"
	"github.com/banshee-data/kitti.review/internal/version"
)

//go:embed status.html
var StatusHTML embed.FS

var httpLogf = monitoring.Componentf("HTTP")

// WebServer is the HTTP surface of the viewer: status page, frame and state
// endpoints, key input, charts and the debug page.
type WebServer struct {
	address   string
	dataset   string
	viewer    *Viewer
	templates TemplateProvider
	server    *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	// Dataset names the reviewed sequence on the status page.
	Dataset string
	Viewer  *Viewer
	// Templates defaults to the embedded status page.
	Templates TemplateProvider
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	templates := config.Templates
	if templates == nil {
		templates = NewEmbeddedTemplateProvider(StatusHTML, "*.html")
	}
	ws := &WebServer{
		address:   config.Address,
		dataset:   config.Dataset,
		viewer:    config.Viewer,
		templates: templates,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start serves HTTP until ctx is cancelled, then shuts down.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Handler returns the server's routes.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/state", ws.handleState)
	mux.HandleFunc("/api/key", ws.handleKey)
	mux.HandleFunc("/api/frame", ws.handleFrame)
	mux.HandleFunc("/frame.html", ws.handleFrameChart)
	mux.HandleFunc("/frame.png", ws.handleFramePNG)

	ws.attachDebugRoutes(mux)
	return mux
}

func (ws *WebServer) attachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KV("dataset", ws.dataset)
	debug.KV("version", version.Version)
	debug.KVFunc("frame cache", func() any {
		s := ws.viewer.CacheStats()
		return fmt.Sprintf("len=%d/%d hits=%d misses=%d evictions=%d failures=%d",
			s.Len, s.Capacity, s.Hits, s.Misses, s.Evictions, s.Failures)
	})
	debug.KVFunc("session", func() any {
		st := ws.viewer.State()
		return fmt.Sprintf("frame %d (%d/%d) play=%v record=%v boxes=%v intensity=%v",
			st.Index, st.Position+1, st.Frames, st.Options.Play, st.Options.Record,
			st.Options.ShowBoxes, st.Options.ColorByIntensity)
	})
	debug.Handle("cache", "Frame cache counters (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, ws.viewer.CacheStats())
	}))
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "kitti-review", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus renders the main status page.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats := ws.viewer.Stats()
	data := struct {
		Dataset     string
		HTTPAddress string
		Version     string
		Uptime      string
		State       visualiser.State
		Cache       interface{}
		Stats       *StatsSnapshot
		Keys        []string
	}{
		Dataset:     ws.dataset,
		HTTPAddress: ws.address,
		Version:     version.Version,
		Uptime:      stats.GetUptime().Round(time.Second).String(),
		State:       ws.viewer.State(),
		Cache:       ws.viewer.CacheStats(),
		Stats:       stats.GetLatestSnapshot(),
		Keys:        []string{"left", "right", "space", "b", "i", "r", "escape"},
	}

	var buf bytes.Buffer
	if err := ws.templates.ExecuteTemplate(&buf, "status.html", data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleState returns the session state and cache counters.
func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"state": ws.viewer.State(),
		"cache": ws.viewer.CacheStats(),
	})
}

// handleKey queues one key for the viewer loop.
// Expects POST with form value or query param `key`.
func (ws *WebServer) handleKey(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	name := r.FormValue("key")
	if name == "" {
		httputil.BadRequest(w, "missing 'key' parameter")
		return
	}
	k, err := visualiser.ParseKey(name)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := ws.viewer.SendKey(k); err != nil {
		httputil.ServiceUnavailable(w, err.Error())
		return
	}
	httpLogf("key %s from %s", k, r.RemoteAddr)

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"key": k.String(), "status": "queued"})
}

func (ws *WebServer) currentPlot(w http.ResponseWriter) *visualiser.FramePlot {
	plot := ws.viewer.Plot()
	if plot == nil {
		httputil.ServiceUnavailable(w, "no frame rendered yet")
	}
	return plot
}

// handleFrame returns the displayed FramePlot as JSON.
func (ws *WebServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	plot := ws.currentPlot(w)
	if plot == nil {
		return
	}
	httputil.WriteJSONOK(w, plot)
}

// handleFramePNG renders the displayed frame from above.
func (ws *WebServer) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	plot := ws.currentPlot(w)
	if plot == nil {
		return
	}
	var buf bytes.Buffer
	if err := visualiser.WriteBEVPNG(&buf, plot); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render frame: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// Close shuts down the web server.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
