package gcv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/yanqian/photo-caption/internal/domain/caption"
)

const defaultMaxResults = 20

// Client runs Google Cloud Vision web detection.
type Client struct {
	svc        *vision.Service
	maxResults int64
}

// Options selects credentials for the Vision API. APIKey wins over
// CredentialsFile; with neither, application default credentials are used.
type Options struct {
	APIKey          string
	CredentialsFile string
	MaxResults      int64
	ClientOptions   []option.ClientOption
}

func newService(ctx context.Context, opts Options) (*vision.Service, error) {
	clientOpts := append([]option.ClientOption(nil), opts.ClientOptions...)
	switch {
	case strings.TrimSpace(opts.APIKey) != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	case strings.TrimSpace(opts.CredentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	svc, err := vision.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return svc, nil
}

// annotate runs a single feature over image and returns its response.
func annotate(ctx context.Context, svc *vision.Service, image []byte, feature *vision.Feature) (*vision.AnnotateImageResponse, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{feature},
		}},
	}
	resp, err := svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", feature.Type, err)
	}
	if len(resp.Responses) == 0 {
		return nil, errors.New(feature.Type + " returned no responses")
	}
	first := resp.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return nil, fmt.Errorf("%s error: %s", feature.Type, first.Error.Message)
	}
	return first, nil
}

// NewClient builds a web detection client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	svc, err := newService(ctx, opts)
	if err != nil {
		return nil, err
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{svc: svc, maxResults: maxResults}, nil
}

// Detect returns the unfiltered web detection for image.
func (c *Client) Detect(ctx context.Context, image []byte) (caption.WebDetection, error) {
	resp, err := annotate(ctx, c.svc, image, &vision.Feature{Type: "WEB_DETECTION", MaxResults: c.maxResults})
	if err != nil {
		return caption.WebDetection{}, err
	}
	return convert(resp.WebDetection), nil
}

func convert(web *vision.WebDetection) caption.WebDetection {
	var out caption.WebDetection
	if web == nil {
		return out
	}
	for _, label := range web.BestGuessLabels {
		if label != nil && label.Label != "" {
			out.BestGuessLabels = append(out.BestGuessLabels, label.Label)
		}
	}
	for _, entity := range web.WebEntities {
		if entity == nil {
			continue
		}
		out.Entities = append(out.Entities, caption.WebEntity{
			Description: entity.Description,
			EntityID:    entity.EntityId,
			Score:       entity.Score,
		})
	}
	for _, page := range web.PagesWithMatchingImages {
		if page == nil {
			continue
		}
		out.MatchingPages = append(out.MatchingPages, caption.MatchingPage{
			URL:            page.Url,
			Title:          page.PageTitle,
			FullMatches:    len(page.FullMatchingImages),
			PartialMatches: len(page.PartialMatchingImages),
		})
	}
	for _, img := range web.VisuallySimilarImages {
		if img != nil && img.Url != "" {
			out.SimilarImages = append(out.SimilarImages, img.Url)
		}
	}
	return out
}

var _ caption.WebDetector = (*Client)(nil)
