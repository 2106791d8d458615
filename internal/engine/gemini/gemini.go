// Package gemini implements an evalctx.LanguageEngine backed by the
// Gemini API-key HTTP endpoint, following the timeout/client/JSON-decode
// shape the teacher's HTTP builtins use for outbound calls.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wigmorewelsh/structured-agent/internal/evalctx"
	"github.com/wigmorewelsh/structured-agent/internal/value"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Engine calls the Gemini generateContent endpoint once per evaluator
// request, rendering visible events into the prompt as a transcript.
type Engine struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures Engine.
type Option func(*Engine)

func WithBaseURL(url string) Option { return func(e *Engine) { e.baseURL = url } }
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.client.Timeout = d }
}

// New builds an Engine. model is e.g. "gemini-2.0-flash".
func New(apiKey, model string, opts ...Option) *Engine {
	e := &Engine{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (e *Engine) call(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	e.logger.Debug("gemini request", "model", e.model, "prompt_bytes", len(prompt))

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func renderEvents(ec *evalctx.Context) string {
	events := evalctx.VisibleEvents(ec)
	if len(events) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Context so far:\n")
	for _, v := range events {
		sb.WriteString("- ")
		sb.WriteString(v.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Untyped implements evalctx.LanguageEngine.
func (e *Engine) Untyped(ctx context.Context, ec *evalctx.Context) (string, error) {
	prompt := renderEvents(ec) + "Respond with a single string value."
	return e.call(ctx, prompt)
}

// Typed implements evalctx.LanguageEngine, coercing the model's text
// response into the requested value shape.
func (e *Engine) Typed(ctx context.Context, ec *evalctx.Context, want evalctx.TypeDescriptor) (value.Value, error) {
	prompt := renderEvents(ec) + "Respond with exactly one value of type " + want.Name + ", and nothing else."
	text, err := e.call(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return coerce(strings.TrimSpace(text), want), nil
}

// Select implements evalctx.LanguageEngine.
func (e *Engine) Select(ctx context.Context, ec *evalctx.Context, descriptions []string) (int, error) {
	if len(descriptions) == 0 {
		return 0, fmt.Errorf("gemini: select has no branches")
	}
	var sb strings.Builder
	sb.WriteString(renderEvents(ec))
	sb.WriteString("Choose exactly one of the following branches by its number, responding with only the digit:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&sb, "%d: %s\n", i, d)
	}
	text, err := e.call(ctx, sb.String())
	if err != nil {
		return 0, err
	}
	var idx int
	if _, err := fmt.Sscanf(strings.TrimSpace(text), "%d", &idx); err != nil || idx < 0 || idx >= len(descriptions) {
		return 0, nil
	}
	return idx, nil
}

func coerce(text string, want evalctx.TypeDescriptor) value.Value {
	switch want.Name {
	case "Boolean":
		return value.Boolean(strings.EqualFold(text, "true"))
	case "Unit":
		return value.Unit{}
	case "List":
		if text == "" {
			return value.List{}
		}
		parts := strings.Split(text, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return value.List{Elements: parts}
	case "Option":
		if text == "" {
			return value.Option{}
		}
		return value.Option{Inner: value.String(text)}
	default:
		return value.String(text)
	}
}
