package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/imageprep"
	"ticksafe/api/internal/session"
	"ticksafe/api/internal/util"
)

const maxDownload = 20 << 20

// acceptImage: "выбор файла". Проверки сразу, скачивание и декодирование
// в фоне, чтобы медленный файл не держал обработку остальных чатов.
func (r *Router) acceptImage(ctx context.Context, chatID int64, fileID string) {
	m := r.Sessions.Get(chatID)
	if m.NavigationLocked() {
		r.send(chatID, "Close Save & Share before choosing a new image.")
		return
	}
	if m.Sub() == session.Processing {
		r.send(chatID, "Analysis already in progress, please wait.")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loadImage(ctx, m, chatID, fileID)
	}()
}

// loadImage: скачать, нормализовать, положить в сессию.
func (r *Router) loadImage(ctx context.Context, m *session.Machine, chatID int64, fileID string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.Log.Warn("get file url", "chat_id", chatID, "err", err)
		r.send(chatID, session.ImageReadNotice)
		return
	}
	raw, err := r.download(ctx, url)
	if err != nil {
		r.Log.Warn("download photo", "chat_id", chatID, "err", err)
		r.send(chatID, session.ImageReadNotice)
		return
	}

	jpg, err := imageprep.Normalize(raw, r.MaxPixels)
	if err != nil {
		r.Log.Info("image read failed", "chat_id", chatID, "err", err)
		if detect.IsImageReadError(err) {
			r.send(chatID, session.ImageReadNotice)
		}
		return
	}

	if err := m.SelectImage(detect.Image(util.MakeDataURL("image/jpeg", jpg))); err != nil {
		r.send(chatID, userNotice(err))
		return
	}
	// экран: новым сообщением под фото
	r.screens.forget(chatID)
	r.render(chatID)
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxDownload {
		return nil, errors.New("file is too large")
	}
	return b, nil
}
