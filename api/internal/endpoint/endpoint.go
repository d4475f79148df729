package endpoint

import (
	"net"
	"strings"
)

const (
	// ProxyBase: путь same-origin прокси к сервису детекции.
	ProxyBase = "/api"
	// ServiceBase: прямой адрес локального сервиса детекции.
	ServiceBase = "http://localhost:8000"

	DetectTickPath = "/detect-tick"
	HealthPath     = "/health"
)

// IsLocal сообщает, является ли хост локальным хостом разработки.
func IsLocal(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if hh, _, err := net.SplitHostPort(h); err == nil {
		h = hh
	}
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	return h == "localhost" || h == "127.0.0.1"
}

// Resolve возвращает базовый адрес API для хоста, на котором запущен клиент.
// Локальный хост ходит через прокси, остальные напрямую в сервис.
func Resolve(host string) string {
	if IsLocal(host) {
		return ProxyBase
	}
	return ServiceBase
}

// IsRelative: база без схемы и хоста (прокси-путь).
func IsRelative(base string) bool {
	return strings.HasPrefix(strings.TrimSpace(base), "/")
}

// Join склеивает базу и путь эндпоинта без двойных слэшей.
func Join(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
