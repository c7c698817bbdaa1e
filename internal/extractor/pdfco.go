package extractor

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

const defaultBaseURL = "https://api.pdf.co"

// Client extracts plain text from PDF files via the external conversion API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a PDF extraction client.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type convertRequest struct {
	URL    string `json:"url"`
	Inline bool   `json:"inline"`
	Async  bool   `json:"async"`
}

type convertResponse struct {
	Body    string `json:"body"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// ExtractText converts the PDF at url into plain text. The API answers with
// either a JSON envelope or a raw text body depending on content type;
// both are handled.
func (c *Client) ExtractText(ctx context.Context, url string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("pdf extraction api key not configured")
	}

	jsonData, err := json.Marshal(convertRequest{URL: url, Inline: true, Async: false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pdf/convert/to/text-simple", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("extraction API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed convertResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if parsed.Error {
			return "", fmt.Errorf("extraction API error: %s", parsed.Message)
		}
		return parsed.Body, nil
	}
	return string(raw), nil
}
