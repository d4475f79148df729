package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"ticksafe/api/internal/config"
	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/endpoint"
	"ticksafe/api/internal/httpserver"
	"ticksafe/api/internal/logging"
	"ticksafe/api/internal/session"
	"ticksafe/api/internal/telegram"
)

func main() {
	cfg, err := config.LoadBot()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log, closeLog := logging.New(cfg.Log)
	defer closeLog.Close()

	if err := run(cfg, log); err != nil {
		log.Error("bot stopped", "err", err)
		closeLog.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Bot, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	bot.Debug = false
	log.Info("authorized", "bot", bot.Self.UserName)

	det := detect.New(cfg.DetectBaseURL(),
		detect.WithNegativeMarker(cfg.NegativeMarker),
		detect.WithFallbackConfidence(cfg.FallbackConfidence),
	)
	r := telegram.NewRouter(bot, session.NewStore(session.WithSaveDelay(cfg.SaveDelay)), det, log)
	r.Health = det.CheckHealth
	r.InlineShare = cfg.InlineShare
	r.MaxPixels = cfg.MaxPixels
	log.Info("detection endpoint", "app_host", cfg.AppHost, "api_base", cfg.APIBaseURL, "client_base", cfg.DetectBaseURL())

	// --- HTTP mux (публичный: healthz и вебхук) ---
	mux := http.NewServeMux()
	mux.Handle("/healthz", httpserver.Healthz("bot", det.CheckHealth))

	proxy, err := newProxyServer(cfg, log)
	if err != nil {
		return err
	}

	updates := make(chan tgbotapi.Update, 100)
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL != "" {
		path, err := registerWebhook(bot, webhookURL)
		if err != nil {
			return err
		}
		mux.HandleFunc(path, webhookHandler(bot, updates, log))
		log.Info("webhook mode", "path", path)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Serve(gctx, srv, log) })
	if proxy != nil {
		g.Go(func() error { return httpserver.Serve(gctx, proxy, log) })
	}
	if webhookURL == "" {
		log.Info("polling mode")
		g.Go(func() error {
			defer close(updates)
			runPolling(gctx, bot, updates, log)
			return nil
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case upd, ok := <-updates:
				if !ok {
					return nil
				}
				r.HandleUpdate(gctx, upd)
			}
		}
	})

	err = g.Wait()
	r.Wait()
	return err
}

// newProxyServer: same-origin прокси /api/ для относительной базы.
// Слушает только loopback, чтобы сервис детекции не торчал наружу через бота.
// nil, если база абсолютная и прокси не нужен.
func newProxyServer(cfg *config.Bot, log *slog.Logger) (*http.Server, error) {
	if !endpoint.IsRelative(cfg.APIBaseURL) {
		return nil, nil
	}
	p, err := httpserver.Proxy(cfg.APIBaseURL, cfg.DetectUpstream, log)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(strings.TrimRight(cfg.APIBaseURL, "/")+"/", p)
	log.Info("detect proxy mounted", "addr", cfg.ProxyAddr(), "prefix", cfg.APIBaseURL, "upstream", cfg.DetectUpstream)
	return &http.Server{
		Addr:              cfg.ProxyAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// ---------------- Webhook -----------------

func registerWebhook(bot *tgbotapi.BotAPI, baseURL string) (string, error) {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return "", err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return "", err
	}
	return path, nil
}

func webhookHandler(bot *tgbotapi.BotAPI, out chan<- tgbotapi.Update, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn("webhook: bad update", "err", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case out <- *upd:
		case <-req.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// runPolling: устойчивый long polling с backoff, до отмены ctx.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, out chan<- tgbotapi.Update, log *slog.Logger) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		if ctx.Err() != nil {
			log.Info("polling: context cancelled")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", "err", err, "retry_in", d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// лёгкий хэш для пути вебхука (не крипто, но стабильно для токена)
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
