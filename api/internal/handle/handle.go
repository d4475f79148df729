package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ticksafe/api/internal/store"
	"ticksafe/api/internal/vision"
)

// Cache: кэш ответов движка; *store.DetectionRepo его реализует.
type Cache interface {
	FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*store.DetectionRow, error)
	Upsert(ctx context.Context, row store.DetectionRow) error
}

type Handle struct {
	eng    vision.Engine
	cache  Cache // может быть nil
	log    *slog.Logger
	marker string
	maxAge time.Duration

	maxUpload int64
	timeout   time.Duration
}

type Option func(*Handle)

func WithCache(c Cache, maxAge time.Duration) Option {
	return func(h *Handle) { h.cache, h.maxAge = c, maxAge }
}

func WithNegativeMarker(m string) Option {
	return func(h *Handle) {
		if m != "" {
			h.marker = m
		}
	}
}

func WithMaxUpload(bytes int64) Option {
	return func(h *Handle) {
		if bytes > 0 {
			h.maxUpload = bytes
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handle) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func New(eng vision.Engine, log *slog.Logger, opts ...Option) *Handle {
	h := &Handle{
		eng:       eng,
		log:       log,
		marker:    "不是",
		maxUpload: 10 << 20,
		timeout:   90 * time.Second,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes регистрирует ручки сервиса.
func (h *Handle) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/detect-tick", h.DetectTick)
	mux.HandleFunc("/health", h.Health)
	return CORS(requestID(mux))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"engine": h.eng.Name(),
		"model":  h.eng.GetModel(),
	})
}

// CORS разрешает любой origin: сервис зовут и из браузера.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Access-Control-Allow-Origin", "*")
		hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		hdr.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func reqID(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
