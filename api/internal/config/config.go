package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/endpoint"
	"ticksafe/api/internal/imageprep"
	"ticksafe/api/internal/logging"
	"ticksafe/api/internal/saveshare"
)

// Bot: настройки процесса бота. Читаются один раз при старте.
type Bot struct {
	Port             string
	// ProxyPort: loopback-порт same-origin прокси /api/ (наружу не слушает).
	ProxyPort        string
	TelegramBotToken string
	WebhookURL       string

	// AppHost: хост, на котором запущен клиент; по нему один раз выбирается APIBaseURL.
	AppHost    string
	APIBaseURL string
	// DetectUpstream: куда проксировать /api/, если APIBaseURL относительный.
	DetectUpstream string

	NegativeMarker     string
	FallbackConfidence int
	SaveDelay          time.Duration
	InlineShare        bool
	MaxPixels          int

	Log logging.Options
}

// Service: настройки сервиса детекции.
type Service struct {
	Port string

	VisionEngine string // azure | gemini

	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	GeminiAPIKey string
	GeminiModel  string

	DatabaseURL  string
	CacheMaxAge  time.Duration
	MaxUploadMiB int

	Log logging.Options
}

// env: источник переменных; в тестах подменяется.
type env func(string) string

// missing собирает имена обязательных переменных, которых нет.
type missing []string

func (m *missing) must(get env, k string) string {
	v := strings.TrimSpace(get(k))
	if v == "" {
		*m = append(*m, k)
	}
	return v
}

func (m missing) err() error {
	if len(m) == 0 {
		return nil
	}
	return fmt.Errorf("missing required env %s", strings.Join(m, ", "))
}

func getEnv(get env, k, def string) string {
	if v := strings.TrimSpace(get(k)); v != "" {
		return v
	}
	return def
}

func getInt(get env, k string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(get(k))); err == nil {
		return n
	}
	return def
}

func getDuration(get env, k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(get(k))); err == nil && d >= 0 {
		return d
	}
	return def
}

func getBool(get env, k string, def bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(get(k))); err == nil {
		return b
	}
	return def
}

func logOptions(get env, name string) logging.Options {
	return logging.Options{
		Format: getEnv(get, "LOG_FORMAT", "text"),
		Level:  getEnv(get, "LOG_LEVEL", "info"),
		Dir:    get("LOG_DIR"),
		Name:   name,
	}
}

func LoadBot() (*Bot, error) { return loadBot(os.Getenv) }

func loadBot(get env) (*Bot, error) {
	var miss missing
	c := &Bot{
		Port:             getEnv(get, "PORT", "8080"),
		ProxyPort:        getEnv(get, "PROXY_PORT", "8081"),
		TelegramBotToken: miss.must(get, "TELEGRAM_BOT_TOKEN"),
		WebhookURL:       get("WEBHOOK_URL"),

		AppHost:        getEnv(get, "APP_HOST", "localhost"),
		DetectUpstream: getEnv(get, "DETECT_UPSTREAM", endpoint.ServiceBase),

		NegativeMarker:     getEnv(get, "NEGATIVE_MARKER", detect.DefaultNegativeMarker),
		FallbackConfidence: getInt(get, "FALLBACK_CONFIDENCE", detect.DefaultFallbackConfidence),
		SaveDelay:          getDuration(get, "SAVE_DELAY", saveshare.DefaultDelay),
		InlineShare:        getBool(get, "INLINE_SHARE", true),
		MaxPixels:          getInt(get, "MAX_PIXELS", imageprep.DefaultMaxPixels),

		Log: logOptions(get, "bot"),
	}
	c.APIBaseURL = endpoint.Resolve(c.AppHost)
	if err := miss.err(); err != nil {
		return nil, err
	}
	return c, nil
}

// DetectBaseURL: абсолютный адрес, по которому ходит клиент детекции.
// Относительная база обслуживается прокси этого же процесса на loopback.
func (c *Bot) DetectBaseURL() string {
	if endpoint.IsRelative(c.APIBaseURL) {
		return endpoint.Join(c.ProxyOrigin(), c.APIBaseURL)
	}
	return c.APIBaseURL
}

// ProxyAddr / ProxyOrigin: где слушает прокси /api/. Только 127.0.0.1.
func (c *Bot) ProxyAddr() string   { return "127.0.0.1:" + c.ProxyPort }
func (c *Bot) ProxyOrigin() string { return "http://" + c.ProxyAddr() }

func LoadService() (*Service, error) { return loadService(os.Getenv) }

func loadService(get env) (*Service, error) {
	var miss missing
	c := &Service{
		Port:         getEnv(get, "PORT", "8000"),
		VisionEngine: strings.ToLower(getEnv(get, "VISION_ENGINE", "azure")),

		AzureAPIVersion: getEnv(get, "AZURE_API_VERSION", "2024-08-01-preview"),
		GeminiModel:     getEnv(get, "GEMINI_MODEL", "gemini-2.5-flash"),

		DatabaseURL:  get("DATABASE_URL"),
		CacheMaxAge:  getDuration(get, "CACHE_MAX_AGE", 30*24*time.Hour),
		MaxUploadMiB: getInt(get, "MAX_UPLOAD_MIB", 10),

		Log: logOptions(get, "detect-service"),
	}
	switch c.VisionEngine {
	case "azure":
		c.AzureAPIKey = miss.must(get, "AZURE_API_KEY")
		c.AzureEndpoint = miss.must(get, "AZURE_OPENAI_ENDPOINT")
		c.AzureDeployment = miss.must(get, "AZURE_DEPLOYMENT_NAME")
	case "gemini":
		c.GeminiAPIKey = miss.must(get, "GEMINI_API_KEY")
	default:
		return nil, fmt.Errorf("unknown VISION_ENGINE %q (azure | gemini)", c.VisionEngine)
	}
	if err := miss.err(); err != nil {
		return nil, err
	}
	return c, nil
}
