package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/session"
)

// Sender: часть *tgbotapi.BotAPI, которой пользуется роутер.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      Sender
	Sessions *session.Store
	Detector detect.Detector
	Log      *slog.Logger

	// Health проверяет сервис детекции для /health.
	Health func(ctx context.Context) error
	// InlineShare: включён ли inline-режим бота (системный share).
	InlineShare bool
	MaxPixels   int

	httpc   *http.Client
	screens screenMsgs
	shares  sync.Map // userID -> shareItem
	wg      sync.WaitGroup
}

func NewRouter(bot Sender, sessions *session.Store, det detect.Detector, log *slog.Logger) *Router {
	return &Router{
		Bot:      bot,
		Sessions: sessions,
		Detector: det,
		Log:      log,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Wait дожидается фоновых анализов (для остановки и тестов).
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		r.handleCallback(ctx, *upd.CallbackQuery)
	case upd.InlineQuery != nil:
		r.handleInlineQuery(*upd.InlineQuery)
	case upd.Message == nil:
		return
	case upd.Message.IsCommand():
		r.HandleCommand(ctx, upd.Message)
	case len(upd.Message.Photo) > 0:
		ph := upd.Message.Photo[len(upd.Message.Photo)-1]
		r.acceptImage(ctx, upd.Message.Chat.ID, ph.FileID)
	case upd.Message.Document != nil && strings.HasPrefix(upd.Message.Document.MimeType, "image/"):
		r.acceptImage(ctx, upd.Message.Chat.ID, upd.Message.Document.FileID)
	default:
		r.send(upd.Message.Chat.ID, "Send a photo of the suspected tick, or use /menu.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if msg.CommandArguments() == "share" {
			// вернулись из inline-режима: состояние не трогаем
			r.screens.forget(cid)
			r.render(cid)
			return
		}
		r.Sessions.Drop(cid)
		r.screens.forget(cid)
		r.render(cid)
	case "menu":
		// новый экран внизу чата
		r.screens.forget(cid)
		r.render(cid)
	case "health":
		if r.Health == nil {
			r.send(cid, "✅ OK")
			return
		}
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.Health(hctx); err != nil {
			r.send(cid, "⚠️ Detection service unavailable")
			return
		}
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command. Available: /start, /menu, /health")
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("send failed", "chat_id", chatID, "err", err)
	}
}

func (r *Router) sendHTML(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err := r.Bot.Send(msg)
	return err
}

// render перерисовывает текущий экран чата: правит сообщение экрана,
// а если его нет или правка не удалась: присылает новое.
func (r *Router) render(chatID int64) {
	v := r.Sessions.Get(chatID).View()
	sc, err := buildScreen(v)
	if err != nil {
		r.Log.Error("build screen", "chat_id", chatID, "screen", v.Screen, "err", err)
		r.send(chatID, "Something went wrong, try /start.")
		return
	}

	if msgID, ok := r.screens.get(chatID); ok {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, sc.Text, sc.Keyboard)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err := r.Bot.Request(edit)
		if err == nil || isNotModified(err) {
			return
		}
		r.Log.Debug("edit screen failed, sending new", "chat_id", chatID, "err", err)
	}

	msg := tgbotapi.NewMessage(chatID, sc.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(sc.Keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = sc.Keyboard
	}
	sent, err := r.Bot.Send(msg)
	if err != nil {
		r.Log.Warn("send screen", "chat_id", chatID, "err", err)
		return
	}
	r.screens.set(chatID, sent.MessageID)
}

func isNotModified(err error) bool {
	var te *tgbotapi.Error
	if errors.As(err, &te) {
		return strings.Contains(te.Message, "message is not modified")
	}
	return strings.Contains(err.Error(), "message is not modified")
}

// startAnalysis запускает единственный запрос детекции в фоне.
func (r *Router) startAnalysis(ctx context.Context, chatID int64) error {
	m := r.Sessions.Get(chatID)
	t, img, err := m.BeginAnalysis()
	if err != nil {
		return err
	}
	r.render(chatID)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()
		out, err := r.Detector.Detect(ctx, img)
		log := r.Log.With("chat_id", chatID, "took", time.Since(start).Round(time.Millisecond))
		if err != nil {
			log.Warn("detection failed", "err", err)
		} else {
			log.Info("detection done", "detected", out.Detected, "confidence", out.Confidence)
		}
		if m.FinishAnalysis(t, out, err) {
			r.render(chatID)
		}
	}()
	return nil
}
