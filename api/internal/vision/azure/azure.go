package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ticksafe/api/internal/util"
	"ticksafe/api/internal/vision"
)

// Engine: развёртывание Azure OpenAI (chat completions с картинкой).
type Engine struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	httpc      *http.Client
}

func New(key, endpoint, deployment, apiVersion string) *Engine {
	return &Engine{
		APIKey:     strings.TrimSpace(key),
		Endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		Deployment: strings.TrimSpace(deployment),
		APIVersion: strings.TrimSpace(apiVersion),
		httpc:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string     { return "azure" }
func (e *Engine) GetModel() string { return e.Deployment }

func (e *Engine) url() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", e.Endpoint, e.Deployment, e.APIVersion)
}

func (e *Engine) Classify(ctx context.Context, img []byte, mime string) (vision.Classification, error) {
	if e.APIKey == "" || e.Endpoint == "" {
		return vision.Classification{}, errors.New("AZURE_API_KEY or AZURE_OPENAI_ENDPOINT is empty")
	}
	if mime == "" {
		mime = util.SniffMimeHTTP(img)
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)

	body := map[string]any{
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": vision.Prompt},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"temperature": 0,
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url(), bytes.NewReader(payload))
	if err != nil {
		return vision.Classification{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return vision.Classification{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return vision.Classification{}, fmt.Errorf("azure classify %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return vision.Classification{}, fmt.Errorf("azure classify: bad JSON: %w", err)
	}
	if len(raw.Choices) == 0 {
		return vision.Classification{}, errors.New("azure classify: empty response")
	}
	out := util.StripCodeFences(strings.TrimSpace(raw.Choices[0].Message.Content))
	return vision.Classification{Verdict: vision.ParseVerdict(out), Raw: out}, nil
}
