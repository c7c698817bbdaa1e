package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verdantiq/esgcopilot/provider"
)

const defaultBaseURL = "https://api.cohere.com"

// Client talks to the Cohere chat and embed endpoints.
type Client struct {
	apiKey      string
	baseURL     string
	chatModel   string
	embedModel  string
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a Cohere client. The API key is checked at call time,
// not here, so a misconfigured path fails the request that needs it.
func NewClient(apiKey, baseURL, chatModel, embedModel string, temperature float64, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		chatModel:   chatModel,
		embedModel:  embedModel,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatHistoryEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type chatRequest struct {
	Message          string             `json:"message"`
	Model            string             `json:"model"`
	ChatHistory      []chatHistoryEntry `json:"chat_history,omitempty"`
	Temperature      float64            `json:"temperature"`
	PromptTruncation string             `json:"prompt_truncation"`
	Preamble         string             `json:"preamble,omitempty"`
}

type chatResponse struct {
	Text      string              `json:"text"`
	Citations []provider.Citation `json:"citations"`
}

// Chat issues one synchronous completion call. Prompt truncation is left to
// the API (prompt_truncation AUTO), so an oversized context is trimmed
// upstream rather than managed here.
func (c *Client) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResult, error) {
	if c.apiKey == "" {
		return provider.ChatResult{}, fmt.Errorf("cohere api key not configured")
	}

	hist := make([]chatHistoryEntry, 0, len(req.History))
	for _, turn := range req.History {
		hist = append(hist, chatHistoryEntry{Role: apiRole(turn.Role), Message: turn.Message})
	}
	body := chatRequest{
		Message:          req.Message,
		Model:            c.chatModel,
		ChatHistory:      hist,
		Temperature:      c.temperature,
		PromptTruncation: "AUTO",
		Preamble:         req.Preamble,
	}

	var resp chatResponse
	if err := c.post(ctx, "/v1/chat", body, &resp); err != nil {
		return provider.ChatResult{}, err
	}
	if resp.Text == "" {
		return provider.ChatResult{}, fmt.Errorf("chat API returned empty text")
	}
	return provider.ChatResult{Text: resp.Text, Citations: resp.Citations}, nil
}

type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// CreateEmbedding embeds the given texts in one call.
func (c *Client) CreateEmbedding(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("cohere api key not configured")
	}

	var resp embedResponse
	if err := c.post(ctx, "/v1/embed", embedRequest{Texts: texts, Model: c.embedModel, InputType: inputType}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed API returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// apiRole maps internal roles to the vocabulary the chat API expects.
func apiRole(role string) string {
	switch role {
	case provider.RoleUser:
		return "USER"
	case provider.RoleChatbot:
		return "CHATBOT"
	case provider.RoleSystem:
		return "SYSTEM"
	default:
		return strings.ToUpper(role)
	}
}
