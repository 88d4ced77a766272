package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/client"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/game"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/metrics"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/render"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

type fakeSession struct {
	view      render.View
	processed *game.Processed
	commands  []client.Command
	err       error
}

func (f *fakeSession) View() render.View { return f.view }

func (f *fakeSession) Processed() (game.Processed, bool) {
	if f.processed == nil {
		return game.Processed{}, false
	}
	return *f.processed, true
}

func (f *fakeSession) Do(ctx context.Context, cmd client.Command) error {
	f.commands = append(f.commands, cmd)
	return f.err
}

func newFake() *fakeSession {
	return &fakeSession{view: render.View{
		State:      &protocol.GameState{Score: 5, Highscore: 9, BirdPosY: 4, GameMode: protocol.ModePlaying},
		Mode:       game.ModePlaying,
		Connection: transport.StateOpen,
		Status:     []status.Entry{{Level: status.Info, Text: "hello"}},
	}}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	s := New(":0", newFake(), prometheus.NewRegistry(), nil)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_State(t *testing.T) {
	s := New(":0", newFake(), prometheus.NewRegistry(), nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got StateResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Mode != "playing" || got.Connection != "open" || got.State.Score != 5 {
		t.Fatalf("state = %+v", got)
	}
	if len(got.Status) != 1 || got.Status[0].Text != "hello" {
		t.Fatalf("status = %+v", got.Status)
	}
}

func TestServer_Render(t *testing.T) {
	s := New(":0", newFake(), prometheus.NewRegistry(), nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/render")
	if !strings.Contains(rec.Body.String(), "Score: 5  High: 9") {
		t.Fatalf("render body = %q", rec.Body.String())
	}
}

func TestServer_Frame(t *testing.T) {
	f := newFake()
	s := New(":0", f, prometheus.NewRegistry(), nil)

	if rec := do(t, s.Handler(), http.MethodGet, "/api/frame"); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /api/frame without frame = %d, want 404", rec.Code)
	}

	f.processed = &game.Processed{Frame: protocol.EncodeDataURL(protocol.MIMEJPEG, []byte{1, 2, 3}), At: time.Now()}
	rec := do(t, s.Handler(), http.MethodGet, "/api/frame")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("GET /api/frame = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "\x01\x02\x03" {
		t.Fatalf("frame body = %v", rec.Body.Bytes())
	}
}

func TestServer_Commands(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		code int
	}{
		{name: "start", path: "/api/commands/start", code: http.StatusOK},
		{name: "camera", path: "/api/commands/camera", code: http.StatusOK},
		{name: "unknown", path: "/api/commands/fly", code: http.StatusNotFound},
		{name: "camera denied", path: "/api/commands/camera_on", err: ferrors.New("F001"), code: http.StatusConflict},
		{name: "closed", path: "/api/commands/pause", err: client.ErrSessionClosed, code: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFake()
			f.err = tc.err
			s := New(":0", f, prometheus.NewRegistry(), nil)
			rec := do(t, s.Handler(), http.MethodPost, tc.path)
			if rec.Code != tc.code {
				t.Fatalf("POST %s = %d, want %d (%s)", tc.path, rec.Code, tc.code, rec.Body.String())
			}
			if tc.code == http.StatusConflict && !strings.Contains(rec.Body.String(), "Camera access denied") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}

	s := New(":0", newFake(), prometheus.NewRegistry(), nil)
	if rec := do(t, s.Handler(), http.MethodGet, "/api/commands/start"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET command = %d, want 405", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	m.FrameSent(1024)

	s := New(":0", newFake(), reg, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/metrics")
	if !strings.Contains(rec.Body.String(), "faceflap_client_frames_sent_total 1") {
		t.Fatalf("metrics body missing frames_sent:\n%s", rec.Body.String())
	}
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New("", newFake(), prometheus.NewRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
