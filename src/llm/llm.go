package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	openRouterURL  = "https://openrouter.ai/api/v1/chat/completions"
	maxRetries     = 3
	initialDelay   = 1 * time.Second
	defaultTimeout = 45 * time.Second
	maxSSELine     = 1024 * 1024
)

type Config struct {
	APIKey      string
	Model       string
	Providers   []string
	RefineModel string
	Endpoint    string
	Timeout     time.Duration
}

// ModelResolver maps a catalog id to the model name and preferred provider.
type ModelResolver interface {
	ResolveModel(id string) (name, provider string, ok bool)
}

// ChunkFunc receives each streamed text delta in order.
type ChunkFunc func(delta string)

// Request is a single completion call.
type Request struct {
	Prompt    string
	Context   Context
	ModelID   string
	Provider  string
	Streaming bool
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg    Config
	models ModelResolver
	http   *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, models ModelResolver) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = openRouterURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		models: models,
		http:   &http.Client{Timeout: cfg.Timeout},
		sleep:  sleepCtx,
	}
}

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
	Delta   ResponseMessage `json:"delta"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // Can be string or number
}

// Refine rewrites previous according to instruction. Image context keeps the
// original model; text and audio results go to the refine model when one is set.
func (c *Client) Refine(ctx context.Context, rc Context, previous, instruction, modelID, provider string, streaming bool, onChunk ChunkFunc) (string, error) {
	if c == nil {
		return "", ErrNotInitialized
	}
	model := modelID
	if rc.Kind != ImageContext && c.cfg.RefineModel != "" {
		model = c.cfg.RefineModel
		provider = ""
	}
	prompt := fmt.Sprintf("Content:\n%s\n\nInstruction:\n%s\n\nOutput ONLY the result.", previous, instruction)
	return c.StreamCompletion(ctx, Request{
		Prompt:    prompt,
		Context:   rc,
		ModelID:   model,
		Provider:  provider,
		Streaming: streaming,
	}, onChunk)
}

// Translate sends text to the model with a translation prompt.
func (c *Client) Translate(ctx context.Context, text, lang, modelID, provider string, streaming bool, onChunk ChunkFunc) (string, error) {
	if c == nil {
		return "", ErrNotInitialized
	}
	prompt := fmt.Sprintf("Translate the following text to %s. Output ONLY the translation. Text:\n\n%s", lang, text)
	return c.StreamCompletion(ctx, Request{
		Prompt:    prompt,
		ModelID:   modelID,
		Provider:  provider,
		Streaming: streaming,
	}, onChunk)
}

// Ping checks that the endpoint accepts the configured key.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return ErrNotInitialized
	}
	req, err := c.buildRequest(Request{Prompt: "ping"})
	if err != nil {
		return err
	}
	req.MaxTokens = 1
	_, err = c.post(ctx, req)
	return err
}

// StreamCompletion runs one completion. Streaming requests deliver each delta
// through onChunk; non-streaming requests are retried and deliver the whole
// result through onChunk once.
func (c *Client) StreamCompletion(ctx context.Context, r Request, onChunk ChunkFunc) (string, error) {
	if c == nil {
		return "", ErrNotInitialized
	}
	req, err := c.buildRequest(r)
	if err != nil {
		return "", err
	}
	if onChunk == nil {
		onChunk = func(string) {}
	}
	if r.Streaming {
		req.Stream = true
		return c.stream(ctx, req, onChunk)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(initialDelay) * (1.5 * float64(attempt)))
			if err := c.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		response, err := c.post(ctx, req)
		if err != nil {
			if err == ErrInvalidAPIKey || ctx.Err() != nil {
				return "", err
			}
			lastErr = err
			continue
		}
		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in API response")
			continue
		}

		text := cleanExtractedText(response.Choices[0].Message.Content)
		if text == "" || text == "NO_TEXT_FOUND" {
			return "", ErrNoText
		}
		onChunk(text)
		return text, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) buildRequest(r Request) (ChatRequest, error) {
	if c.cfg.APIKey == "" {
		return ChatRequest{}, ErrNoAPIKey
	}
	model, provider := c.resolve(r.ModelID, r.Provider)
	if model == "" {
		return ChatRequest{}, ErrNoModel
	}

	content := []Content{{Type: "text", Text: r.Prompt}}
	switch r.Context.Kind {
	case ImageContext:
		base64Image := base64.StdEncoding.EncodeToString(r.Context.Data)
		content = append(content, Content{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: fmt.Sprintf("data:image/png;base64,%s", base64Image)},
		})
	case AudioContext:
		if _, err := ValidateWAV(r.Context.Data); err != nil {
			return ChatRequest{}, err
		}
		content = append(content, Content{
			Type: "input_audio",
			InputAudio: &InputAudio{
				Data:   base64.StdEncoding.EncodeToString(r.Context.Data),
				Format: "wav",
			},
		})
	}

	return ChatRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: content}},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    c.providerPreferences(provider),
	}, nil
}

func (c *Client) resolve(modelID, provider string) (string, string) {
	if modelID == "" {
		modelID = c.cfg.Model
	}
	if c.models != nil {
		if name, p, ok := c.models.ResolveModel(modelID); ok {
			if provider == "" {
				provider = p
			}
			return name, provider
		}
	}
	return modelID, provider
}

func (c *Client) providerPreferences(provider string) *ProviderPreferences {
	order := c.cfg.Providers
	if provider != "" {
		order = []string{provider}
	}
	if len(order) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{Order: order, AllowFallbacks: &allowFallbacks}
}

func (c *Client) newHTTPRequest(ctx context.Context, request ChatRequest) (*http.Request, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	req.Header.Set("HTTP-Referer", "https://github.com/screen-translate-overlay")
	req.Header.Set("X-Title", "Screen Translate Overlay")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if request.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, request ChatRequest) (*http.Response, error) {
	req, err := c.newHTTPRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, ErrInvalidAPIKey
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	resp, err := c.do(ctx, request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	return &response, nil
}

func (c *Client) stream(ctx context.Context, request ChatRequest, onChunk ChunkFunc) (string, error) {
	resp, err := c.do(ctx, request)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Printf("LLM: skipping malformed stream chunk: %v", err)
			continue
		}
		if chunk.Error != nil {
			return full.String(), fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		full.WriteString(delta)
		onChunk(delta)
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("stream read failed: %w", err)
	}
	if ctx.Err() != nil {
		return full.String(), ctx.Err()
	}

	text := cleanExtractedText(full.String())
	if text == "" || text == "NO_TEXT_FOUND" {
		return "", ErrNoText
	}
	return text, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cleanExtractedText(text string) string {
	if text == "</image>" {
		return ""
	}
	return strings.TrimSuffix(text, "</image>")
}
