package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultChatBaseURL = "https://api.openai.com/v1"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body accepted from clients and forwarded upstream.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type ChatConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	HTTPClient   *http.Client
}

// ChatProxy forwards chat completions to an OpenAI-compatible endpoint and
// streams the answer back unchanged.
type ChatProxy struct {
	cfg        ChatConfig
	httpClient *http.Client
}

func NewChatProxy(cfg ChatConfig) *ChatProxy {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc := cfg.HTTPClient
	if hc == nil {
		// No client timeout: streams are bounded by the request context.
		hc = &http.Client{}
	}
	return &ChatProxy{cfg: cfg, httpClient: hc}
}

// Available reports whether a key is configured; it makes no request.
func (p *ChatProxy) Available() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

// Stream sends req upstream with stream=true and copies the response body to w,
// calling flush after every chunk. It returns the upstream content type through
// setContentType before the first byte is written.
func (p *ChatProxy) Stream(ctx context.Context, req ChatRequest, w io.Writer, setContentType func(string), flush func()) error {
	if !p.Available() {
		return ErrNotConfigured
	}
	if len(req.Messages) == 0 {
		return fmt.Errorf("messages are required")
	}
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	payload := map[string]any{
		"model":    model,
		"messages": req.Messages,
		"stream":   true,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Service: "chat", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Service: "chat", Status: resp.StatusCode, Body: string(b)}
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "text/event-stream"
	}
	if setContentType != nil {
		setContentType(ct)
	}

	buf := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write stream: %w", werr)
			}
			if flush != nil {
				flush()
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return &TransportError{Service: "chat", Err: fmt.Errorf("read stream: %w", rerr)}
		}
	}
}
