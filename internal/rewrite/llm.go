package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LLMClient produces a structured query interpretation. Implementations
// must respect the context deadline.
type LLMClient interface {
	Interpret(ctx context.Context, query string) (Result, error)
}

// OpenAIClient implements LLMClient against a chat-completions API.
// Every call carries a hard timeout; the response JSON is extracted
// with a greedy brace match since models wrap it in prose.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
}

// NewOpenAIClient creates a client. Returns nil when apiKey is empty so
// callers can pass the result straight to New.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 || timeout > 2*time.Second {
		timeout = 2 * time.Second
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		timeout:    timeout,
	}
}

const systemPrompt = `You interpret e-commerce search queries. Respond with JSON:
{"corrected_query": "...", "brands": [], "categories": [], "product_terms": [], "attributes": [], "confidence": 0.0}`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Interpret sends one chat completion and parses the embedded JSON
func (c *OpenAIClient) Interpret(ctx context.Context, query string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: 0,
		MaxTokens:   200,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("llm request: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read llm response: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return Result{}, fmt.Errorf("decode llm response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Result{}, fmt.Errorf("llm response has no choices")
	}

	return parseInterpretation(chat.Choices[0].Message.Content)
}

// parseInterpretation extracts the first balanced JSON object from free
// text and parses it leniently.
func parseInterpretation(content string) (Result, error) {
	jsonText, ok := extractJSONObject(content)
	if !ok {
		return Result{}, fmt.Errorf("no JSON object in llm output")
	}

	var res Result
	if err := json.Unmarshal([]byte(jsonText), &res); err != nil {
		return Result{}, fmt.Errorf("parse llm JSON: %w", err)
	}
	return res, nil
}

// extractJSONObject returns the substring from the first '{' to its
// matching '}', tracking string literals so braces inside values don't
// unbalance the scan.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
