package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// inlineSharer: системный share через inline-режим: пользователь выбирает чат,
// бот отдаёт туда карточку с результатом.
type inlineSharer struct {
	r      *Router
	chatID int64
}

func (s *inlineSharer) Share(title, text string) error {
	// в личке chatID совпадает с userID отправителя inline-запроса
	s.r.shares.Store(s.chatID, shareItem{Title: title, Text: text})
	kb := shareSwitchKeyboard()
	return s.r.sendHTML(s.chatID, "Choose a chat to share your detection:", &kb)
}

// chatClipboard: запасной путь: текст моноширинным блоком, его копируют касанием.
type chatClipboard struct {
	r      *Router
	chatID int64
}

func (c *chatClipboard) Copy(text string) error {
	return c.r.sendHTML(c.chatID, "<code>"+esc(text)+"</code>", nil)
}

func (r *Router) handleInlineQuery(q tgbotapi.InlineQuery) {
	if q.From == nil {
		return
	}
	cfg := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		IsPersonal:    true,
		CacheTime:     0,
		Results:       []interface{}{},
	}
	if v, ok := r.shares.Load(q.From.ID); ok && r.InlineShare {
		it := v.(shareItem)
		art := tgbotapi.NewInlineQueryResultArticle(uuid.NewString(), it.Title, it.Text)
		art.Description = it.Text
		cfg.Results = []interface{}{art}
	} else {
		cfg.SwitchPMText = "Open TickSafe Victoria"
		cfg.SwitchPMParameter = "share"
	}
	if _, err := r.Bot.Request(cfg); err != nil {
		r.Log.Warn("answer inline query", "user_id", q.From.ID, "err", err)
	}
}
