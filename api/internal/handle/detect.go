package handle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"ticksafe/api/internal/store"
	"ticksafe/api/internal/util"
	"ticksafe/api/internal/vision"
)

// DetectTick принимает multipart-поле file с картинкой и отвечает {"result": "..."}.
func (h *Handle) DetectTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	log := h.log.With("request_id", reqID(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, `missing "file" field`)
		return
	}
	defer f.Close()

	ct := strings.ToLower(strings.TrimSpace(hdr.Header.Get("Content-Type")))
	if !strings.HasPrefix(ct, "image/") {
		writeDetail(w, http.StatusBadRequest, "Please upload an image file")
		return
	}
	img, err := io.ReadAll(f)
	if err != nil || len(img) == 0 {
		writeDetail(w, http.StatusBadRequest, "empty image")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	hash := util.SHA256Hex(img)
	if c, ok := h.fromCache(ctx, hash); ok {
		log.Info("detect cache hit", "hash", hash[:12], "verdict", c.Verdict)
		writeJSON(w, http.StatusOK, map[string]string{"result": vision.Result(c, h.marker)})
		return
	}

	c, err := h.eng.Classify(ctx, img, util.PickMIME(ct, "", img))
	if err != nil {
		log.Error("classify failed", "engine", h.eng.Name(), "err", err)
		writeDetail(w, http.StatusBadGateway, "detect error: "+err.Error())
		return
	}
	res := vision.Result(c, h.marker)
	log.Info("classified", "engine", h.eng.Name(), "verdict", c.Verdict, "bytes", len(img))

	h.toCache(ctx, store.DetectionRow{
		ImageHash: hash,
		Engine:    h.eng.Name(),
		Model:     h.eng.GetModel(),
		Verdict:   string(c.Verdict),
		Raw:       c.Raw,
	})
	writeJSON(w, http.StatusOK, map[string]string{"result": res})
}

// fromCache: промах и ошибки БД одинаково ведут к движку.
// Строка ответа собирается заново, с текущим маркером.
func (h *Handle) fromCache(ctx context.Context, hash string) (vision.Classification, bool) {
	if h.cache == nil {
		return vision.Classification{}, false
	}
	row, err := h.cache.FindByHash(ctx, hash, h.eng.Name(), h.eng.GetModel(), h.maxAge)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("detect cache lookup", "err", err)
		}
		return vision.Classification{}, false
	}
	return vision.Classification{Verdict: vision.Verdict(row.Verdict), Raw: row.Raw}, true
}

func (h *Handle) toCache(ctx context.Context, row store.DetectionRow) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Upsert(ctx, row); err != nil {
		h.log.Warn("detect cache upsert", "err", err)
	}
}
