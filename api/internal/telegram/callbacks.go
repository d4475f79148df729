package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ticksafe/api/internal/content"
	"ticksafe/api/internal/saveshare"
	"ticksafe/api/internal/session"
)

const lockedNotice = "Navigation is disabled while Save & Share is open."

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		r.answer(cb.ID, "", false)
		return
	}
	cid := cb.Message.Chat.ID
	// экран живёт в сообщении, на кнопку которого нажали
	r.screens.set(cid, cb.Message.MessageID)

	notice, alert, err := r.dispatch(ctx, cid, cb.Data)
	if err != nil {
		notice, alert = userNotice(err), false
		r.Log.Debug("callback rejected", "chat_id", cid, "data", cb.Data, "err", err)
	}
	r.answer(cb.ID, notice, alert)
}

// dispatch выполняет действие кнопки и перерисовывает экран.
// Возвращает текст ответа на callback.
func (r *Router) dispatch(ctx context.Context, cid int64, data string) (string, bool, error) {
	m := r.Sessions.Get(cid)

	switch {
	case strings.HasPrefix(data, cbNav):
		to, err := session.ParseScreen(strings.TrimPrefix(data, cbNav))
		if err != nil {
			return "", false, err
		}
		if err := m.Navigate(to); err != nil {
			return "", false, err
		}

	case strings.HasPrefix(data, cbTab):
		t, err := session.ParseTab(strings.TrimPrefix(data, cbTab))
		if err != nil {
			return "", false, err
		}
		if err := m.SelectTab(t); err != nil {
			return "", false, err
		}

	case strings.HasPrefix(data, cbDial):
		d, ok := content.Dial(strings.TrimPrefix(data, cbDial))
		if !ok {
			return "", false, fmt.Errorf("unknown dial target %q", data)
		}
		r.send(cid, fmt.Sprintf("📞 %s\n%s", d.Label, d.Display))
		return "", false, nil

	case data == cbAnalyze:
		return "", false, r.startAnalysis(ctx, cid)

	case data == cbReset:
		m.Reset()

	case data == cbPageNext:
		if _, err := m.NextPage(); err != nil {
			return "", false, err
		}
	case data == cbPagePrev:
		if _, err := m.PrevPage(); err != nil {
			return "", false, err
		}
	case data == cbPageDone:
		if err := m.CompletePages(); err != nil {
			return "", false, err
		}

	case data == cbSSOpen:
		if err := m.OpenSaveShare(); err != nil {
			return "", false, err
		}
	case data == cbSSSave:
		if err := m.Save(func() { r.render(cid) }); err != nil {
			return "", false, err
		}
	case data == cbSSExport:
		notice, err := m.Export()
		return notice, true, err
	case data == cbSSShare:
		var platform saveshare.Sharer
		if r.InlineShare {
			platform = &inlineSharer{r: r, chatID: cid}
		}
		notice, err := m.Share(platform, &chatClipboard{r: r, chatID: cid})
		return notice, notice == saveshare.CopiedNotice, err
	case data == cbSSClose:
		if err := m.CloseSaveShare(); err != nil {
			return "", false, err
		}

	default:
		return "", false, fmt.Errorf("unknown callback %q", data)
	}

	r.render(cid)
	return "", false, nil
}

// userNotice: короткий текст для пользователя по ошибке действия.
func userNotice(err error) string {
	switch {
	case errors.Is(err, session.ErrNavigationLocked):
		return lockedNotice
	case errors.Is(err, session.ErrAnalysisInFlight):
		return "Analysis already in progress, please wait."
	case errors.Is(err, session.ErrNoImage):
		return "Send a photo first."
	case errors.Is(err, saveshare.ErrSaveInProgress):
		return "Saving..."
	case errors.Is(err, saveshare.ErrAlreadySaved):
		return "Already saved."
	case errors.Is(err, saveshare.ErrNotSaved):
		return "Save the detection first."
	default:
		return "This action is no longer available."
	}
}

func (r *Router) answer(callbackID, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := r.Bot.Request(cfg); err != nil {
		r.Log.Debug("answer callback", "err", err)
	}
}
