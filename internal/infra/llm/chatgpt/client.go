package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Message mirrors the OpenAI chat message structure.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the model for a constrained output shape.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatCompletionRequest is the payload sent to the chat completions API.
type ChatCompletionRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Usage reports token accounting returned by the API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse captures the response for non streaming calls.
type ChatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// EmbeddingRequest accepts a single string or a batch of strings as Input.
type EmbeddingRequest struct {
	Model string `json:"model,omitempty"`
	Input any    `json:"input"`
}

// EmbeddingData is one vector of an embeddings response.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingResponse is returned by the embeddings endpoint.
type EmbeddingResponse struct {
	Data  []EmbeddingData `json:"data"`
	Model string          `json:"model"`
	Usage Usage           `json:"usage"`
}

// Options tunes the client. APIVersion enables Azure OpenAI routing, where
// the model name is used as the deployment name.
type Options struct {
	APIVersion          string
	EmbeddingAPIVersion string
	Timeout             time.Duration
	HTTPClient          *http.Client
}

// Client performs HTTP requests to an OpenAI compatible API.
type Client struct {
	apiKey              string
	baseURL             string
	apiVersion          string
	embeddingAPIVersion string
	httpClient          *http.Client
}

// NewClient constructs a ChatGPT client.
func NewClient(apiKey, baseURL string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatgpt api key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	embeddingVersion := opts.EmbeddingAPIVersion
	if embeddingVersion == "" {
		embeddingVersion = opts.APIVersion
	}
	return &Client{
		apiKey:              apiKey,
		baseURL:             strings.TrimRight(baseURL, "/"),
		apiVersion:          strings.TrimSpace(opts.APIVersion),
		embeddingAPIVersion: strings.TrimSpace(embeddingVersion),
		httpClient:          httpClient,
	}, nil
}

// CreateChatCompletion triggers a sync chat completion call.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var out ChatCompletionResponse
	endpoint := c.endpoint("chat/completions", req.Model, c.apiVersion)
	if c.azure() {
		req.Model = ""
	}
	body, err := c.post(ctx, endpoint, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode chat completion: %w", err)
	}
	return out, nil
}

// CreateEmbedding requests embeddings. Data is returned sorted by index so
// it lines up with the request input.
func (c *Client) CreateEmbedding(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	var out EmbeddingResponse
	endpoint := c.endpoint("embeddings", req.Model, c.embeddingAPIVersion)
	if c.azure() {
		req.Model = ""
	}
	body, err := c.post(ctx, endpoint, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode embedding response: %w", err)
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	return out, nil
}

func (c *Client) azure() bool {
	return c.apiVersion != "" || c.embeddingAPIVersion != ""
}

func (c *Client) endpoint(operation, model, apiVersion string) string {
	if !c.azure() {
		return c.baseURL + "/" + operation
	}
	query := url.Values{}
	query.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/openai/deployments/%s/%s?%s", c.baseURL, url.PathEscape(model), operation, query.Encode())
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.azure() {
		httpReq.Header.Set("api-key", c.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("chatgpt request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
