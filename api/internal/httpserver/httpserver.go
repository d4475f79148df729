package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

// HealthFunc проверяет зависимость для /healthz.
type HealthFunc func(ctx context.Context) error

// Healthz отвечает "ok" или 503 с текстом ошибки.
func Healthz(name string, check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + ": not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Proxy: same-origin прокси: prefix/... уходит в upstream/... без префикса.
func Proxy(prefix, upstream string, log *slog.Logger) (http.Handler, error) {
	u, err := url.Parse(strings.TrimSpace(upstream))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("bad proxy upstream %q", upstream)
	}
	prefix = "/" + strings.Trim(prefix, "/")

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn("proxy upstream error", "path", r.URL.Path, "err", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"detail":"detection service unavailable"}`))
		},
	}
	return http.StripPrefix(prefix, rp), nil
}

// Serve запускает сервер и гасит его при отмене ctx.
func Serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return err
		}
		log.Info("http server stopped")
		return nil
	}
}
