package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ticksafe/api/internal/content"
	"ticksafe/api/internal/session"
)

// callback data
const (
	cbNav      = "nav:"
	cbTab      = "tab:"
	cbDial     = "dial:"
	cbAnalyze  = "act:analyze"
	cbReset    = "act:reset"
	cbPageNext = "page:next"
	cbPagePrev = "page:prev"
	cbPageDone = "page:done"
	cbSSOpen   = "ss:open"
	cbSSSave   = "ss:save"
	cbSSExport = "ss:export"
	cbSSShare  = "ss:share"
	cbSSClose  = "ss:close"
)

func btn(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func row(b ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(b...)
}

// navRow: нижняя навигация. Заблокированные кнопки рисуются "приглушёнными",
// но остаются кликабельными, чтобы ответить пользователю уведомлением.
func navRow(c session.Chrome) []tgbotapi.InlineKeyboardButton {
	items := session.NavItems()
	out := make([]tgbotapi.InlineKeyboardButton, 0, len(items))
	for _, it := range items {
		label := it.Label
		switch {
		case c.Disabled:
			label = "🔒 " + label
		case c.Active == it.Screen:
			label = "◉ " + label
		}
		out = append(out, btn(label, cbNav+string(it.Screen)))
	}
	return out
}

func tabRow(active session.Tab) []tgbotapi.InlineKeyboardButton {
	tabs := session.Tabs()
	out := make([]tgbotapi.InlineKeyboardButton, 0, len(tabs))
	for _, t := range tabs {
		label := t.Label()
		if t == active {
			label = "▸ " + label
		}
		out = append(out, btn(label, cbTab+string(t)))
	}
	return out
}

// pageRow: листание страниц вкладки; на последней странице вместо Next: Complete.
func pageRow(page, pages int) []tgbotapi.InlineKeyboardButton {
	if pages <= 1 {
		return nil
	}
	var out []tgbotapi.InlineKeyboardButton
	if page > 1 {
		out = append(out, btn("← Previous", cbPagePrev))
	}
	if page < pages {
		out = append(out, btn("Next →", cbPageNext))
	} else {
		out = append(out, btn("Complete ✓", cbPageDone))
	}
	return out
}

func dialRow(key string) []tgbotapi.InlineKeyboardButton {
	d, ok := content.Dial(key)
	if !ok {
		return nil
	}
	return row(btn("📞 "+d.Label, cbDial+d.Key))
}

func shareSwitchKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		row(tgbotapi.NewInlineKeyboardButtonSwitch("📤 Share Detection", "share")),
	)
}

func esc(s string) string { return html.EscapeString(s) }

// renderPage переводит страницу контента в HTML-текст сообщения.
func renderPage(b *strings.Builder, p content.Page, withTitle bool) {
	if withTitle && p.Title != "" {
		fmt.Fprintf(b, "<b>%s</b>\n", esc(p.Title))
	}
	for _, s := range p.Sections {
		b.WriteString("\n")
		if s.Heading != "" {
			b.WriteString("<b>" + esc(s.Heading) + "</b>")
			if s.Badge != "" {
				b.WriteString(" · " + esc(s.Badge))
			}
			b.WriteString("\n")
		}
		if s.Subtitle != "" {
			b.WriteString("<i>" + esc(s.Subtitle) + "</i>\n")
		}
		if s.Text != "" {
			b.WriteString(esc(s.Text) + "\n")
		}
		if s.ListTitle != "" {
			b.WriteString(esc(s.ListTitle) + "\n")
		}
		for _, it := range s.Items {
			b.WriteString("• " + esc(it) + "\n")
		}
		for _, f := range s.Facts {
			fmt.Fprintf(b, "%s: <b>%s</b>\n", esc(f.Label), esc(f.Value))
		}
	}
	if p.Footer != "" {
		b.WriteString("\n<i>" + esc(p.Footer) + "</i>\n")
	}
	if p.Total > 1 {
		fmt.Fprintf(b, "\nPage %d of %d", p.Number, p.Total)
	}
}
