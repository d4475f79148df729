package azure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ticksafe/api/internal/vision"
)

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/tick-detection-model/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-08-01-preview" {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("api-key header missing")
		}
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), "data:image/jpeg;base64,") || !strings.Contains(string(b), "Is this image a tick?") {
			t.Errorf("unexpected body %s", b)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "No"}}},
		})
	}))
	defer srv.Close()

	e := New("secret", srv.URL+"/", "tick-detection-model", "2024-08-01-preview")
	got, err := e.Classify(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if got.Verdict != vision.VerdictNo || got.Raw != "No" {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New("k", srv.URL, "d", "v").Classify(context.Background(), []byte{1}, "image/png")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v", err)
	}
}

func TestClassifyNotConfigured(t *testing.T) {
	if _, err := New("", "", "d", "v").Classify(context.Background(), []byte{1}, ""); err == nil {
		t.Fatal("expected error without credentials")
	}
}
