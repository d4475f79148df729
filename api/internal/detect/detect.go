package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"ticksafe/api/internal/endpoint"
	"ticksafe/api/internal/util"
)

const (
	// DefaultNegativeMarker: подстрока ответа сервиса, означающая "клеща нет".
	DefaultNegativeMarker = "不是"
	// DefaultFallbackConfidence: уверенность для положительного ответа. Оценка самого сервиса не используется.
	DefaultFallbackConfidence = 85

	uploadFilename = "image.jpeg"
	uploadMIME     = "image/jpeg"
	maxErrBody     = 2048
)

// Image: изображение в виде data:URL (как его держит сессия).
type Image string

// Outcome: итог одной детекции.
type Outcome struct {
	Detected   bool
	Confidence int // 0..100
	Count      int // 0 или 1: сколько областей с клещом найдено
	RawResult  string
}

// Detector: то, чем пользуется машина состояний.
type Detector interface {
	Detect(ctx context.Context, img Image) (Outcome, error)
}

type Client struct {
	BaseURL            string
	NegativeMarker     string
	FallbackConfidence int
	httpc              *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

func WithNegativeMarker(m string) Option {
	return func(cl *Client) {
		if strings.TrimSpace(m) != "" {
			cl.NegativeMarker = m
		}
	}
}

func WithFallbackConfidence(v int) Option {
	return func(cl *Client) {
		if v > 0 && v <= 100 {
			cl.FallbackConfidence = v
		}
	}
}

// New создаёт клиент. Таймаута у клиента нет: используется дедлайн контекста вызывающего.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:            strings.TrimSpace(baseURL),
		NegativeMarker:     DefaultNegativeMarker,
		FallbackConfidence: DefaultFallbackConfidence,
		httpc:              &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Detect отправляет картинку в {base}/detect-tick и интерпретирует ответ. Без ретраев.
func (c *Client) Detect(ctx context.Context, img Image) (Outcome, error) {
	data, _, err := util.DecodeDataURL(string(img))
	if err != nil {
		return Outcome{}, &ImageReadError{Err: err}
	}
	if len(data) == 0 {
		return Outcome{}, &ImageReadError{Err: errors.New("empty image")}
	}

	body, contentType, err := buildUpload(data)
	if err != nil {
		return Outcome{}, &DetectionError{Kind: KindTransport, Err: err}
	}

	url := endpoint.Join(c.BaseURL, endpoint.DetectTickPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Outcome{}, &DetectionError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Outcome{}, &DetectionError{Kind: KindTransport, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return Outcome{}, &DetectionError{
			Kind:   KindStatus,
			Status: resp.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(x))),
		}
	}

	var out struct {
		Result *string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Outcome{}, &DetectionError{Kind: KindMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Result == nil {
		return Outcome{}, &DetectionError{Kind: KindMalformed, Err: errors.New(`response has no "result" field`)}
	}
	return c.Interpret(*out.Result), nil
}

// Interpret переводит текст ответа сервиса в Outcome по наличию негативного маркера.
func (c *Client) Interpret(result string) Outcome {
	if strings.Contains(result, c.NegativeMarker) {
		return Outcome{Detected: false, Confidence: 0, Count: 0, RawResult: result}
	}
	return Outcome{Detected: true, Confidence: c.FallbackConfidence, Count: 1, RawResult: result}
}

// CheckHealth проверяет доступность сервиса детекции.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.Join(c.BaseURL, endpoint.HealthPath), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detection service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func buildUpload(data []byte) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	// CreateFormFile ставит application/octet-stream, а сервису нужен image/jpeg
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, uploadFilename))
	h.Set("Content-Type", uploadMIME)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
