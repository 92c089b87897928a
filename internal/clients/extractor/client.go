package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tazhate/classsync/internal/domain"
)

// Extractor turns a timetable image into raw class records
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]RawClass, error)
}

// Client talks to the vision extraction service over HTTP
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new extraction client
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsConfigured returns true if an endpoint is set
func (c *Client) IsConfigured() bool {
	return c.url != ""
}

// Extract sends the image as a data URI and decodes the returned array.
// Every failure wraps domain.ErrExtraction so callers can offer a retry.
// An empty array is a valid answer.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) ([]RawClass, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("%w: extraction endpoint not configured", domain.ErrExtraction)
	}

	body, err := json.Marshal(extractRequest{
		PhotoDataURI: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrExtraction, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: API error %d: %s", domain.ErrExtraction, resp.StatusCode, truncate(string(respBody), 200))
	}

	var classes []RawClass
	if err := json.Unmarshal(respBody, &classes); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrExtraction, err)
	}
	if classes == nil {
		classes = []RawClass{}
	}

	return classes, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
