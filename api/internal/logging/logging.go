// Package logging собирает *slog.Logger: stdout всегда, плюс ротируемый
// файл через lumberjack, если задан каталог.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Format string // "json" | "text"
	Level  string // debug | info | warn | error
	Dir    string // пусто: только stdout
	Name   string // имя файла без расширения
}

// New возвращает логгер и closer для файла (no-op, если файла нет).
func New(o Options) (*slog.Logger, io.Closer) {
	return newWithStdout(os.Stdout, o)
}

func newWithStdout(stdout io.Writer, o Options) (*slog.Logger, io.Closer) {
	var w io.Writer = stdout
	var closer io.Closer = nopCloser{}
	if dir := strings.TrimSpace(o.Dir); dir != "" {
		name := o.Name
		if name == "" {
			name = "ticksafe"
		}
		rot := &lumberjack.Logger{
			Filename:   filepath.Join(dir, name+".log"),
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     28, // дней
			Compress:   true,
		}
		w = io.MultiWriter(stdout, rot)
		closer = rot
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(o.Level)}
	if strings.EqualFold(o.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts)), closer
	}
	return slog.New(slog.NewTextHandler(w, hopts)), closer
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard: логгер для тестов.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
