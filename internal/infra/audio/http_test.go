package audio_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
	"github.com/XaviFdez/proyecto-emergencia/internal/infra/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockCommander struct {
	recordErr error
	playErr   error
	calls     []string
}

func (m *mockCommander) Record(_ context.Context, clip string) (domain.Recording, error) {
	m.calls = append(m.calls, "record:"+clip)
	if m.recordErr != nil {
		return domain.Recording{}, m.recordErr
	}
	return domain.Recording{Clip: clip, Bytes: 1024}, nil
}

func (m *mockCommander) Play(_ context.Context, clip string) (domain.PlaybackStatus, error) {
	m.calls = append(m.calls, "play:"+clip)
	if m.playErr != nil {
		return domain.PlaybackStatus{State: domain.PlaybackIdle}, m.playErr
	}
	return domain.PlaybackStatus{State: domain.PlaybackRunning, Clip: clip, SessionID: "s1"}, nil
}

func (m *mockCommander) Stop(_ context.Context) (domain.PlaybackStatus, error) {
	m.calls = append(m.calls, "stop")
	return domain.PlaybackStatus{State: domain.PlaybackIdle}, nil
}

func (m *mockCommander) Status(_ context.Context) (domain.PlaybackStatus, error) {
	return domain.PlaybackStatus{State: domain.PlaybackRunning, Clip: "audio.wav", SamplesPlayed: 512}, nil
}

func newTestServer(t *testing.T, commander audio.Commander, token string) http.Handler {
	t.Helper()
	store := audio.NewFileStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}
	cfg := audio.ServerConfig{Addr: ":0", AuthToken: token, RateLimit: 1000, RateWindow: time.Minute}
	return audio.NewHTTPServer(cfg, commander, store, discardLogger()).Handler()
}

func TestHTTPServer_Commands(t *testing.T) {
	tests := []struct {
		method   string
		target   string
		wantBody string
		wantCall string
	}{
		{http.MethodGet, "/record", "recording complete", "record:"},
		{http.MethodPost, "/record?clip=memo.wav", "recording complete", "record:memo.wav"},
		{http.MethodGet, "/play", "playback started", "play:"},
		{http.MethodPost, "/play?clip=memo.wav", "playback started", "play:memo.wav"},
		{http.MethodGet, "/stop", "playback stopped", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			commander := &mockCommander{}
			handler := newTestServer(t, commander, "")

			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body: got %q, want %q", got, tt.wantBody)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("content type: got %q", ct)
			}
			if len(commander.calls) != 1 || commander.calls[0] != tt.wantCall {
				t.Errorf("calls: got %v, want [%s]", commander.calls, tt.wantCall)
			}
		})
	}
}

func TestHTTPServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid clip", fmt.Errorf("%w: %q", domain.ErrInvalidClip, "x"), http.StatusBadRequest},
		{"busy", fmt.Errorf("%w: playback in progress", domain.ErrBusy), http.StatusConflict},
		{"storage", fmt.Errorf("%w: card missing", domain.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{"peripheral", fmt.Errorf("%w: no mic", domain.ErrPeripheralInitFailed), http.StatusServiceUnavailable},
		{"decode", fmt.Errorf("%w: short header", domain.ErrDecodeInitFailed), http.StatusInternalServerError},
		{"stopped", application.ErrControllerStopped, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, &mockCommander{playErr: tt.err}, "")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/play", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHTTPServer_AuthToken(t *testing.T) {
	const token = "test-secret-token-123"

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"valid token in header", token, "", http.StatusOK},
		{"valid token in query", "", token, http.StatusOK},
		{"invalid token", "wrong-token", "", http.StatusUnauthorized},
		{"missing token", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commander := &mockCommander{}
			handler := newTestServer(t, commander, token)

			target := "/stop"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			if tt.header != "" {
				req.Header.Set("X-Auth-Token", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && len(commander.calls) != 0 {
				t.Errorf("commander called without auth: %v", commander.calls)
			}
		})
	}
}

func TestHTTPServer_StatusJSON(t *testing.T) {
	handler := newTestServer(t, &mockCommander{}, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d", rec.Code)
	}

	var status domain.PlaybackStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.State != domain.PlaybackRunning || status.SamplesPlayed != 512 {
		t.Errorf("status: got %+v", status)
	}
}

func TestHTTPServer_Page(t *testing.T) {
	handler := newTestServer(t, &mockCommander{}, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, route := range []string{"/record", "/play", "/stop"} {
		if !strings.Contains(body, route) {
			t.Errorf("page does not link %s", route)
		}
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status: got %d, want 404", rec.Code)
	}
}

func TestHTTPServer_Health(t *testing.T) {
	handler := newTestServer(t, &mockCommander{}, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Handler() without Start reports not ready.
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHTTPServer_RateLimited(t *testing.T) {
	store := audio.NewFileStore(t.TempDir())
	cfg := audio.ServerConfig{RateLimit: 2, RateWindow: time.Minute}
	handler := audio.NewHTTPServer(cfg, &mockCommander{}, store, discardLogger()).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stop", nil))
		codes = append(codes, rec.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: got %d, want %d", i, codes[i], want[i])
		}
	}
}
