package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/logging"
	"ticksafe/api/internal/store"
	"ticksafe/api/internal/util"
	"ticksafe/api/internal/vision"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	verdict vision.Verdict
	err     error
}

func (f *fakeEngine) Name() string     { return "fake" }
func (f *fakeEngine) GetModel() string { return "fake-1" }
func (f *fakeEngine) Classify(_ context.Context, img []byte, mime string) (vision.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return vision.Classification{Verdict: f.verdict, Raw: string(f.verdict)}, f.err
}

type memCache struct {
	rows map[string]store.DetectionRow
	err  error
}

func (m *memCache) FindByHash(_ context.Context, hash, engine, model string, _ time.Duration) (*store.DetectionRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rows[hash+engine+model]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *memCache) Upsert(_ context.Context, r store.DetectionRow) error {
	if m.err != nil {
		return m.err
	}
	m.rows[r.ImageHash+r.Engine+r.Model] = r
	return nil
}

func upload(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpeg"`)
	h.Set("Content-Type", contentType)
	pw, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = pw.Write(data)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, h http.Handler, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := upload(t, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/detect-tick", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("bad json %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestDetectTickVerdicts(t *testing.T) {
	for verdict, want := range map[vision.Verdict]string{
		vision.VerdictNo:        "不是,这不是蜱虫",
		vision.VerdictYes:       "这是蜱虫",
		vision.VerdictUncertain: "这可能是蜱虫",
	} {
		h := New(&fakeEngine{verdict: verdict}, logging.Discard()).Routes()
		rec := post(t, h, "image/jpeg", jpeg)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", verdict, rec.Code)
		}
		if got := decode(t, rec)["result"]; got != want {
			t.Errorf("%s: result = %q, want %q", verdict, got, want)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("CORS header missing")
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("request id missing")
		}
	}
}

func TestDetectTickRejectsNonImage(t *testing.T) {
	eng := &fakeEngine{verdict: vision.VerdictYes}
	rec := post(t, New(eng, logging.Discard()).Routes(), "text/plain", []byte("hello"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if decode(t, rec)["detail"] != "Please upload an image file" {
		t.Errorf("body = %s", rec.Body.String())
	}
	if eng.calls != 0 {
		t.Errorf("engine called for a non-image")
	}
}

func TestDetectTickEngineError(t *testing.T) {
	eng := &fakeEngine{err: errors.New("upstream 500")}
	rec := post(t, New(eng, logging.Discard()).Routes(), "image/jpeg", jpeg)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	if decode(t, rec)["detail"] == "" {
		t.Errorf("detail missing")
	}
}

func TestDetectTickMethodAndOptions(t *testing.T) {
	h := New(&fakeEngine{}, logging.Discard()).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/detect-tick", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/detect-tick", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status %d", rec.Code)
	}
}

func TestDetectTickTooLarge(t *testing.T) {
	h := New(&fakeEngine{}, logging.Discard(), WithMaxUpload(1024)).Routes()
	rec := post(t, h, "image/jpeg", bytes.Repeat([]byte{0xFF}, 4096))
	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestDetectTickUsesCache(t *testing.T) {
	eng := &fakeEngine{verdict: vision.VerdictYes}
	cache := &memCache{rows: map[string]store.DetectionRow{}}
	h := New(eng, logging.Discard(), WithCache(cache, time.Hour)).Routes()

	for i := 0; i < 2; i++ {
		if rec := post(t, h, "image/jpeg", jpeg); rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
	}
	if eng.calls != 1 {
		t.Fatalf("engine calls = %d, want 1", eng.calls)
	}
	row, ok := cache.rows[util.SHA256Hex(jpeg)+"fake"+"fake-1"]
	if !ok || row.Verdict != "yes" {
		t.Fatalf("cached row = %+v", row)
	}
}

func TestCachedVerdictUsesCurrentMarker(t *testing.T) {
	cache := &memCache{rows: map[string]store.DetectionRow{}}
	old := New(&fakeEngine{verdict: vision.VerdictNo}, logging.Discard(),
		WithCache(cache, time.Hour), WithNegativeMarker("NOT")).Routes()
	if rec := post(t, old, "image/jpeg", jpeg); decode(t, rec)["result"] != "NOT,这不是蜱虫" {
		t.Fatalf("first answer = %s", rec.Body.String())
	}

	eng := &fakeEngine{verdict: vision.VerdictYes}
	cur := New(eng, logging.Discard(), WithCache(cache, time.Hour)).Routes()
	rec := post(t, cur, "image/jpeg", jpeg)
	if got := decode(t, rec)["result"]; got != "不是,这不是蜱虫" {
		t.Fatalf("cached answer = %q, want current marker", got)
	}
	if eng.calls != 0 {
		t.Fatalf("engine calls = %d, want cache hit", eng.calls)
	}
}

func TestDetectTickCacheErrorsFallThrough(t *testing.T) {
	eng := &fakeEngine{verdict: vision.VerdictNo}
	cache := &memCache{err: errors.New("db down")}
	rec := post(t, New(eng, logging.Discard(), WithCache(cache, 0)).Routes(), "image/jpeg", jpeg)
	if rec.Code != http.StatusOK || eng.calls != 1 {
		t.Fatalf("status %d, calls %d", rec.Code, eng.calls)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeEngine{}, logging.Discard()).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

// Клиент детекции против настоящих ручек сервиса.
func TestClientAgainstService(t *testing.T) {
	srv := httptest.NewServer(New(&fakeEngine{verdict: vision.VerdictNo}, logging.Discard()).Routes())
	defer srv.Close()

	cl := detect.New(srv.URL)
	out, err := cl.Detect(context.Background(), detect.Image(util.MakeDataURL("image/jpeg", jpeg)))
	if err != nil {
		t.Fatal(err)
	}
	if out.Detected || out.Confidence != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if err := cl.CheckHealth(context.Background()); err != nil {
		t.Fatal(err)
	}
}
