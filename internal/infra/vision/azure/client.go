package azure

import (
	"bytes"
	"context"
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
	defaultAPIVersion = "2024-02-01"
	analyzePath       = "/computervision/imageanalysis:analyze"
)

var defaultFeatures = []string{"caption", "denseCaptions", "read", "tags"}

// Client calls the Azure AI Vision Image Analysis 4.0 REST API.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	features   []string
	httpClient *http.Client
}

// NewClient builds an API client. An empty feature list requests caption,
// dense captions, OCR and tags.
func NewClient(endpoint, apiKey, apiVersion string, features []string, timeout time.Duration) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("vision endpoint cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("vision api key cannot be empty")
	}
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	if len(features) == 0 {
		features = defaultFeatures
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		features:   features,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Analyze uploads the raw image and condenses the response.
func (c *Client) Analyze(ctx context.Context, image []byte) (caption.VisionSummary, error) {
	query := url.Values{}
	query.Set("api-version", c.apiVersion)
	query.Set("features", strings.Join(c.features, ","))
	query.Set("gender-neutral-caption", "false")
	endpoint := c.endpoint + analyzePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(image))
	if err != nil {
		return caption.VisionSummary{}, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return caption.VisionSummary{}, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return caption.VisionSummary{}, fmt.Errorf("vision request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return caption.VisionSummary{}, fmt.Errorf("decode vision response: %w", err)
	}
	return raw.summary(), nil
}

type analyzeResponse struct {
	CaptionResult *struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"captionResult"`
	DenseCaptionsResult struct {
		Values []struct {
			Text        string  `json:"text"`
			Confidence  float64 `json:"confidence"`
			BoundingBox struct {
				X int `json:"x"`
				Y int `json:"y"`
				W int `json:"w"`
				H int `json:"h"`
			} `json:"boundingBox"`
		} `json:"values"`
	} `json:"denseCaptionsResult"`
	TagsResult struct {
		Values []struct {
			Name       string  `json:"name"`
			Confidence float64 `json:"confidence"`
		} `json:"values"`
	} `json:"tagsResult"`
	ReadResult struct {
		Blocks []struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
}

func (r analyzeResponse) summary() caption.VisionSummary {
	var out caption.VisionSummary
	if r.CaptionResult != nil && r.CaptionResult.Text != "" {
		out.MainCaption = &caption.Caption{Text: r.CaptionResult.Text, Confidence: r.CaptionResult.Confidence}
	}
	for _, v := range r.DenseCaptionsResult.Values {
		out.DenseCaptions = append(out.DenseCaptions, caption.DenseCaption{
			Text:       v.Text,
			Confidence: v.Confidence,
			BoundingBox: caption.BoundingBox{
				X: v.BoundingBox.X, Y: v.BoundingBox.Y, Width: v.BoundingBox.W, Height: v.BoundingBox.H,
			},
		})
	}
	for _, v := range r.TagsResult.Values {
		out.Tags = append(out.Tags, caption.Tag{Name: v.Name, Confidence: v.Confidence})
	}
	var lines []string
	for _, block := range r.ReadResult.Blocks {
		for _, line := range block.Lines {
			lines = append(lines, line.Text)
		}
	}
	out.OCRText = strings.Join(lines, "\n")
	return out
}

var _ caption.VisionAnalyzer = (*Client)(nil)
