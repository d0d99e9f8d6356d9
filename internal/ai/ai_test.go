package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

type staticCategories []string

func (s staticCategories) Categories(context.Context) ([]string, error) { return s, nil }

type cannedGenerator struct {
	out    string
	err    error
	prompt string
}

func (g *cannedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.out, g.err
}

type capturedRequest struct {
	path string
	key  string
	body []byte
}

func geminiServer(t *testing.T, status int, text string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.URL.Query().Get("key")
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": text}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestGeminiGenerate(t *testing.T) {
	srv, req := geminiServer(t, http.StatusOK, "  Food \n")
	c := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: srv.URL + "/", Model: "m-1"})

	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Food", out)
	assert.Equal(t, "/models/m-1:generateContent", req.path)
	assert.Equal(t, "k", req.key)
	assert.Contains(t, string(req.body), `"text":"hello"`)
}

func TestGeminiUpstreamError(t *testing.T) {
	srv, _ := geminiServer(t, http.StatusTooManyRequests, "")
	c := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: srv.URL})

	_, err := c.Generate(context.Background(), "hello")
	var up *UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusTooManyRequests, up.Status)
}

func TestGeminiNotConfigured(t *testing.T) {
	c := NewGeminiClient(GeminiConfig{})
	assert.False(t, c.Configured())
	_, err := c.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCategorizeCanonicalizes(t *testing.T) {
	gen := &cannedGenerator{out: `"credit card".`}
	a := NewAssistant(gen, staticCategories{"Credit Card", "Food", "Pets"}, log.Discard())

	got, err := a.Categorize(context.Background(), "HDFC card bill")
	require.NoError(t, err)
	assert.Equal(t, "Credit Card", got)
	assert.Contains(t, gen.prompt, "Credit Card, Food, Pets")
	assert.Contains(t, gen.prompt, "HDFC card bill")
}

func TestCategorizeKeepsUnknownLabel(t *testing.T) {
	a := NewAssistant(&cannedGenerator{out: "Gardening\nbecause plants"}, staticCategories{"Food"}, log.Discard())
	got, err := a.Categorize(context.Background(), "seeds")
	require.NoError(t, err)
	assert.Equal(t, "Gardening", got)
}

func TestCategorizeErrors(t *testing.T) {
	a := NewAssistant(&cannedGenerator{err: ErrNotConfigured}, staticCategories{"Food"}, log.Discard())
	_, err := a.Categorize(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = a.Categorize(context.Background(), " ")
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	a = NewAssistant(&cannedGenerator{out: "  "}, staticCategories{"Food"}, log.Discard())
	_, err = a.Categorize(context.Background(), "x")
	assert.Error(t, err)
}

func TestTipsInput(t *testing.T) {
	es := []core.Expense{
		{Category: "Food", Amount: decimal.RequireFromString("12.5"), Description: "Lunch", Date: time.Now()},
		{Category: "Rent", Amount: decimal.NewFromInt(900), Description: "March rent", Date: time.Now()},
	}
	assert.Equal(t, "Food: 12.50 - Lunch\nRent: 900.00 - March rent", TipsInput(es))

	gen := &cannedGenerator{out: "Cook at home."}
	a := NewAssistant(gen, staticCategories{}, log.Discard())
	tips, err := a.Tips(context.Background(), es)
	require.NoError(t, err)
	assert.Equal(t, "Cook at home.", tips)
	assert.Contains(t, gen.prompt, "Rent: 900.00 - March rent")

	_, err = a.Tips(context.Background(), nil)
	assert.Error(t, err)
}

func TestChatProxyStreamsVerbatim(t *testing.T) {
	chunks := []string{"data: {\"a\":1}\n\n", "data: {\"a\":2}\n\n", "data: [DONE]\n\n"}
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = io.WriteString(w, c)
			f.Flush()
		}
	}))
	defer srv.Close()

	p := NewChatProxy(ChatConfig{APIKey: "secret", BaseURL: srv.URL, DefaultModel: "gpt-x"})
	require.True(t, p.Available())

	temp := 0.2
	var out bytes.Buffer
	var ct string
	flushes := 0
	err := p.Stream(context.Background(), ChatRequest{
		Messages:    []ChatMessage{{Role: "user", Content: "hi"}},
		Temperature: &temp,
		MaxTokens:   64,
	}, &out, func(s string) { ct = s }, func() { flushes++ })
	require.NoError(t, err)

	assert.Equal(t, strings.Join(chunks, ""), out.String())
	assert.Equal(t, "text/event-stream", ct)
	assert.Positive(t, flushes)
	assert.Equal(t, "gpt-x", got["model"])
	assert.Equal(t, true, got["stream"])
	assert.Equal(t, 0.2, got["temperature"])
	assert.Equal(t, float64(64), got["max_tokens"])
}

func TestChatProxyErrors(t *testing.T) {
	p := NewChatProxy(ChatConfig{})
	assert.False(t, p.Available())
	err := p.Stream(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}}, io.Discard, nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()
	p = NewChatProxy(ChatConfig{APIKey: "k", BaseURL: srv.URL})
	err = p.Stream(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}}, io.Discard, nil, nil)
	var up *UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusUnauthorized, up.Status)

	err = p.Stream(context.Background(), ChatRequest{}, io.Discard, nil, nil)
	assert.Error(t, err)
}

func TestTransportFailuresAreTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: url}).Generate(context.Background(), "hi")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "gemini", te.Service)

	err = NewChatProxy(ChatConfig{APIKey: "k", BaseURL: url}).
		Stream(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}}, io.Discard, nil, nil)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "chat", te.Service)
}

func TestGeminiMalformedAnswerIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "hi")
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}
