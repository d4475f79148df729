package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"golang.org/x/sync/errgroup"

	"ticksafe/api/internal/config"
	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/handle"
	"ticksafe/api/internal/httpserver"
	"ticksafe/api/internal/logging"
	"ticksafe/api/internal/store"
	"ticksafe/api/internal/vision"
	"ticksafe/api/internal/vision/azure"
	"ticksafe/api/internal/vision/gemini"
)

func main() {
	cfg, err := config.LoadService()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log, closeLog := logging.New(cfg.Log)
	defer closeLog.Close()

	if err := run(cfg, log); err != nil {
		log.Error("detect-service stopped", "err", err)
		closeLog.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Service, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := &vision.Engines{
		Azure:  azure.New(cfg.AzureAPIKey, cfg.AzureEndpoint, cfg.AzureDeployment, cfg.AzureAPIVersion),
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	}
	eng, err := engines.GetEngine(cfg.VisionEngine)
	if err != nil {
		return err
	}
	log.Info("vision engine", "engine", eng.Name(), "model", eng.GetModel())

	opts := []handle.Option{
		handle.WithNegativeMarker(detect.DefaultNegativeMarker),
		handle.WithMaxUpload(int64(cfg.MaxUploadMiB) << 20),
	}

	g, gctx := errgroup.WithContext(ctx)

	// --- Postgres (кэш ответов, необязателен) ---
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := openDB(ctx, dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("db connected", "dsn", safeDSNSummary(dsn))

		repo := store.NewDetectionRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		opts = append(opts, handle.WithCache(repo, cfg.CacheMaxAge))
		g.Go(func() error {
			purgeLoop(gctx, repo, cfg.CacheMaxAge, log)
			return nil
		})
	} else {
		log.Info("DATABASE_URL is empty, detection cache disabled")
	}

	h := handle.New(eng, log, opts...)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error { return httpserver.Serve(gctx, srv, log) })
	return g.Wait()
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// purgeLoop раз в час удаляет записи кэша старше maxAge.
func purgeLoop(ctx context.Context, repo *store.DetectionRepo, maxAge time.Duration, log *slog.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeOlderThan(ctx, maxAge)
			if err != nil {
				log.Warn("cache purge", "err", err)
				continue
			}
			if n > 0 {
				log.Info("cache purged", "rows", n)
			}
		}
	}
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
