package elicit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// deepseekElicitor is the concrete Elicitor backed by the DeepSeek API.
// DeepSeek exposes an OpenAI-compatible /v1/chat/completions endpoint, so the
// request/response shapes are standard OpenAI chat format — not Anthropic's.
type deepseekElicitor struct {
	apiKey     string
	model      string
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDeepSeekElicitor returns an Elicitor that calls the DeepSeek API.
//   - apiKey: your DEEPSEEK_API_KEY
//   - model:  e.g. "deepseek-chat" or "deepseek-reasoner"
func NewDeepSeekElicitor(apiKey, model string, opts Options, logger *slog.Logger) Elicitor {
	return &deepseekElicitor{
		apiKey: apiKey,
		model:  model,
		opts:   opts.withDefaults(),
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		logger: logger,
	}
}

// ─── OPENAI-COMPATIBLE API SHAPES ────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int64           `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFmt    `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFmt instructs the model to return valid JSON.
// DeepSeek honours {"type": "json_object"} the same way OpenAI does.
type responseFmt struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// Elicit submits the fixed-schema prompt in json_object mode and parses the
// answer into a ProbabilityRecord. ParseRecord still fence-strips, same as
// the Anthropic path.
func (c *deepseekElicitor) Elicit(ctx context.Context, notes []string, mode Mode) (*ProbabilityRecord, error) {
	reqBody := openAIRequest{
		Model:          c.model,
		MaxTokens:      c.opts.MaxTokens,
		Temperature:    c.opts.Temperature,
		ResponseFormat: &responseFmt{Type: "json_object"},
		Messages: []openAIMessage{
			{Role: "user", Content: BuildPrompt(notes)},
		},
	}

	text, err := c.call(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("elicit: deepseek raw output",
		"mode", mode,
		"notes", len(notes),
		"size", len(text),
		"raw", text,
	)

	return ParseRecord(text)
}

// DeriveTree submits the free-form tree prompt. json_object mode is NOT set
// here — the expected output is Mermaid text, not JSON.
func (c *deepseekElicitor) DeriveTree(ctx context.Context, notes []string) (string, error) {
	reqBody := openAIRequest{
		Model:       c.model,
		MaxTokens:   c.opts.TreeMaxTokens,
		Temperature: c.opts.TreeTemperature,
		Messages: []openAIMessage{
			{Role: "user", Content: BuildTreePrompt(notes)},
		},
	}

	text, err := c.call(ctx, reqBody)
	if err != nil {
		return "", err
	}

	return StripFences(text), nil
}

// call sends one request to the DeepSeek chat completions endpoint and
// returns the content of the first choice.
func (c *deepseekElicitor) call(ctx context.Context, reqBody openAIRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", serviceFailure("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.deepseek.com/v1/chat/completions",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", serviceFailure("build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", serviceFailure("http request", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", serviceFailure("read response body", err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", serviceFailure("unmarshal response envelope", err)
	}

	if parsed.Error != nil {
		return "", serviceFailure("deepseek API error",
			fmt.Errorf("%s (%s): %s", parsed.Error.Type, parsed.Error.Code, parsed.Error.Message))
	}

	if resp.StatusCode != http.StatusOK {
		return "", serviceFailure("deepseek API error",
			fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, string(respBytes)))
	}

	if len(parsed.Choices) == 0 {
		return "", serviceFailure("deepseek response", fmt.Errorf("no choices in response"))
	}

	return parsed.Choices[0].Message.Content, nil
}
