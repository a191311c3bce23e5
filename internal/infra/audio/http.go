package audio

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
)

//go:embed page.html
var controlPage []byte

// Commander is the command side of the recorder as seen by the HTTP layer.
type Commander interface {
	Record(ctx context.Context, clip string) (domain.Recording, error)
	Play(ctx context.Context, clip string) (domain.PlaybackStatus, error)
	Stop(ctx context.Context) (domain.PlaybackStatus, error)
	Status(ctx context.Context) (domain.PlaybackStatus, error)
}

type ServerConfig struct {
	Addr            string
	AuthToken       string
	RateLimit       int
	RateWindow      time.Duration
	CaptureDuration time.Duration
}

// HTTPServer exposes record, play and stop over HTTP.
type HTTPServer struct {
	cfg         ServerConfig
	commander   Commander
	clips       application.ClipStore
	server      *http.Server
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	mux         *http.ServeMux
	rateLimiter *RateLimiter
}

func NewHTTPServer(cfg ServerConfig, commander Commander, clips application.ClipStore, logger *slog.Logger) *HTTPServer {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	h := &HTTPServer{
		cfg:         cfg,
		commander:   commander,
		clips:       clips,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}

	// The page buttons navigate with GET, scripts may POST.
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		h.mux.HandleFunc(method+" /record", h.command(h.handleRecord))
		h.mux.HandleFunc(method+" /play", h.command(h.handlePlay))
		h.mux.HandleFunc(method+" /stop", h.command(h.handleStop))
	}
	h.mux.HandleFunc("GET /status", h.handleStatus)
	h.mux.HandleFunc("GET /clips", h.handleClips)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /{$}", h.handlePage)
	return h
}

func (h *HTTPServer) Handler() http.Handler {
	return h.mux
}

func (h *HTTPServer) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}

	// /record holds the connection for the whole capture.
	h.server = &http.Server{
		Addr:         h.cfg.Addr,
		Handler:      h.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: h.cfg.CaptureDuration + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		h.logger.Info("HTTP control server starting", "addr", h.cfg.Addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", "error", err)
		}
	}()

	h.running = true
	return nil
}

func (h *HTTPServer) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := h.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	h.running = false
	return nil
}

// command wraps a command handler with rate limiting and token auth.
func (h *HTTPServer) command(next http.HandlerFunc) http.HandlerFunc {
	return h.rateLimiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}

			if token != h.cfg.AuthToken {
				h.logger.Warn("unauthorized command", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	})
}

func (h *HTTPServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.commander.Record(r.Context(), r.URL.Query().Get("clip"))
	if err != nil {
		h.writeError(w, "record", err)
		return
	}

	h.logger.Info("recording completed via HTTP", "clip", rec.Clip, "bytes", rec.Bytes)
	writeText(w, http.StatusOK, "recording complete")
}

func (h *HTTPServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	status, err := h.commander.Play(r.Context(), r.URL.Query().Get("clip"))
	if err != nil {
		h.writeError(w, "play", err)
		return
	}

	h.logger.Info("playback started via HTTP", "clip", status.Clip, "session", status.SessionID)
	writeText(w, http.StatusOK, "playback started")
}

func (h *HTTPServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if _, err := h.commander.Stop(r.Context()); err != nil {
		h.writeError(w, "stop", err)
		return
	}
	writeText(w, http.StatusOK, "playback stopped")
}

func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.commander.Status(r.Context())
	if err != nil {
		h.writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *HTTPServer) handleClips(w http.ResponseWriter, _ *http.Request) {
	clips, err := h.clips.List()
	if err != nil {
		h.writeError(w, "list clips", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clips": clips})
}

func (h *HTTPServer) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(controlPage)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK

	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{"status": status, "running": running})
}

func (h *HTTPServer) writeError(w http.ResponseWriter, op string, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("command failed", "command", op, "error", err)
	} else {
		h.logger.Warn("command rejected", "command", op, "error", err)
	}
	http.Error(w, err.Error(), code)
}

// StatusCode maps recorder errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidClip):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrPeripheralInitFailed),
		errors.Is(err, application.ErrControllerStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprint(w, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
