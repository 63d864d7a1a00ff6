package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yanqian/photo-caption/internal/domain/caption"
)

const (
	defaultAPIVersion = "2024-09-01"
	analyzePath       = "/contentsafety/image:analyze"
)

// Client calls the Azure AI Content Safety image analysis API.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(endpoint, apiKey, apiVersion string, timeout time.Duration) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("content safety endpoint cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("content safety api key cannot be empty")
	}
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type analyzeRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
}

type analyzeResponse struct {
	CategoriesAnalysis []caption.CategorySeverity `json:"categoriesAnalysis"`
}

// Check returns the severity of every moderation category for image.
func (c *Client) Check(ctx context.Context, image []byte) ([]caption.CategorySeverity, error) {
	var payload analyzeRequest
	payload.Image.Content = base64.StdEncoding.EncodeToString(image)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode safety request: %w", err)
	}

	endpoint := c.endpoint + analyzePath + "?api-version=" + url.QueryEscape(c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build safety request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("safety request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("safety request error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode safety response: %w", err)
	}
	return out.CategoriesAnalysis, nil
}

var _ caption.SafetyChecker = (*Client)(nil)
