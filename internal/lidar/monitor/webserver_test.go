package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
	"github.com/banshee-data/kitti.review/internal/testutil"
	"github.com/banshee-data/kitti.review/internal/timeutil"
)

func newTestServer(t *testing.T) (*WebServer, *Viewer) {
	t.Helper()
	v := newTestViewer(t, timeutil.NewMockClock(t0))
	ws := NewWebServer(WebServerConfig{Address: ":0", Dataset: "/kitti", Viewer: v})
	return ws, v
}

func serve(ws *WebServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ws.Handler().ServeHTTP(w, req)
	return w
}

func TestWebServer_HealthHandler(t *testing.T) {
	ws, _ := newTestServer(t)
	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/health"))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "kitti-review" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestWebServer_StatusHandler(t *testing.T) {
	ws, v := newTestServer(t)
	v.step(nil)

	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	body := w.Body.String()
	for _, s := range []string{"KITTI review", "/kitti", "(1 of 3)", "Play</th><td>off", "/frame.png", "sendKey('escape')"} {
		if !strings.Contains(body, s) {
			t.Errorf("status page missing %q", s)
		}
	}

	w = serve(ws, testutil.NewTestRequest(http.MethodGet, "/nope"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestWebServer_StatusTemplateError(t *testing.T) {
	v := newTestViewer(t, timeutil.NewMockClock(t0))
	mock := NewMockTemplateProvider(map[string]string{"status.html": "{{.Dataset}}"})
	mock.ExecuteError = errors.New("boom")
	ws := NewWebServer(WebServerConfig{Viewer: v, Templates: mock})

	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/"))
	testutil.AssertStatusCode(t, w.Code, http.StatusInternalServerError)
	if len(mock.ExecuteCalls) != 1 || mock.ExecuteCalls[0].Name != "status.html" {
		t.Errorf("unexpected template calls %+v", mock.ExecuteCalls)
	}
}

func TestWebServer_State(t *testing.T) {
	ws, v := newTestServer(t)
	v.step(nil)

	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/api/state"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var body struct {
		State visualiser.State `json:"state"`
		Cache struct {
			Len      int `json:"len"`
			Capacity int `json:"capacity"`
		} `json:"cache"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	if body.State.Frames != 3 || body.State.Rendered != 0 || !body.State.Options.ShowBoxes {
		t.Errorf("unexpected state %+v", body.State)
	}
	if body.Cache.Len != 1 || body.Cache.Capacity != 32 {
		t.Errorf("unexpected cache %+v", body.Cache)
	}

	w = serve(ws, testutil.NewTestRequest(http.MethodPost, "/api/state"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

func TestWebServer_Key(t *testing.T) {
	ws, v := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"queued", http.MethodPost, "/api/key?key=right", http.StatusAccepted},
		{"case insensitive", http.MethodPost, "/api/key?key=SPACE", http.StatusAccepted},
		{"missing", http.MethodPost, "/api/key", http.StatusBadRequest},
		{"unknown", http.MethodPost, "/api/key?key=q", http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/key?key=right", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(ws, testutil.NewTestRequest(tt.method, tt.path))
			testutil.AssertStatusCode(t, w.Code, tt.want)
		})
	}

	keys := v.drain(<-v.keys)
	if len(keys) != 2 || keys[0] != visualiser.KeyRight || keys[1] != visualiser.KeySpace {
		t.Errorf("unexpected queued keys %v", keys)
	}
}

func TestWebServer_KeyForm(t *testing.T) {
	ws, v := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/key", strings.NewReader("key=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := serve(ws, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusAccepted)
	if k := <-v.keys; k != visualiser.KeyBoxes {
		t.Errorf("expected b queued, got %v", k)
	}
}

func TestWebServer_KeyQueueFull(t *testing.T) {
	ws, _ := newTestServer(t)
	for i := 0; i < 4; i++ {
		serve(ws, testutil.NewTestRequest(http.MethodPost, "/api/key?key=left"))
	}
	w := serve(ws, testutil.NewTestRequest(http.MethodPost, "/api/key?key=left"))
	testutil.AssertStatusCode(t, w.Code, http.StatusServiceUnavailable)
}

func TestWebServer_FrameBeforeFirstRender(t *testing.T) {
	ws, _ := newTestServer(t)
	for _, path := range []string{"/api/frame", "/frame.png", "/frame.html"} {
		w := serve(ws, testutil.NewTestRequest(http.MethodGet, path))
		testutil.AssertStatusCode(t, w.Code, http.StatusServiceUnavailable)
	}
}

func TestWebServer_Frame(t *testing.T) {
	ws, v := newTestServer(t)
	v.step(nil)

	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/api/frame"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	var plot visualiser.FramePlot
	if err := json.NewDecoder(w.Body).Decode(&plot); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if plot.Index != 0 || len(plot.Points) != 4 || len(plot.Boxes) != 1 {
		t.Errorf("unexpected frame index=%d points=%d boxes=%d", plot.Index, len(plot.Points), len(plot.Boxes))
	}
	if plot.Boxes[0].Text != `"Car", 3.80` {
		t.Errorf("unexpected caption %q", plot.Boxes[0].Text)
	}
}

func TestWebServer_FramePNG(t *testing.T) {
	ws, v := newTestServer(t)
	v.step(nil)

	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/frame.png"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestWebServer_Debug(t *testing.T) {
	ws, v := newTestServer(t)
	v.step(nil)

	req := testutil.NewTestRequest(http.MethodGet, "/debug/")
	req.RemoteAddr = "127.0.0.1:12345"
	w := serve(ws, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	for _, s := range []string{"frame cache", "len=1/32", "session", "/kitti"} {
		if !strings.Contains(w.Body.String(), s) {
			t.Errorf("debug page missing %q", s)
		}
	}

	req = testutil.NewTestRequest(http.MethodGet, "/debug/cache")
	req.RemoteAddr = "127.0.0.1:12345"
	w = serve(ws, req)
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"capacity":32`) {
		t.Errorf("unexpected cache body %s", w.Body.String())
	}
}

func TestWebServer_StartStop(t *testing.T) {
	ws, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- ws.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	if err := ws.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
