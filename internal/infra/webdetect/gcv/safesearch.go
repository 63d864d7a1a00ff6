package gcv

import (
	"context"
	"errors"

	vision "google.golang.org/api/vision/v1"

	"github.com/yanqian/photo-caption/internal/domain/caption"
)

// likelihoodSeverity places SafeSearch likelihoods on the 0-6 severity
// scale used by the moderation thresholds.
var likelihoodSeverity = map[string]int{
	"UNKNOWN":       0,
	"VERY_UNLIKELY": 0,
	"UNLIKELY":      1,
	"POSSIBLE":      2,
	"LIKELY":        4,
	"VERY_LIKELY":   6,
}

// SafeSearch checks images with Google Cloud Vision SafeSearch.
type SafeSearch struct {
	svc *vision.Service
}

// NewSafeSearch builds a SafeSearch checker. MaxResults is ignored.
func NewSafeSearch(ctx context.Context, opts Options) (*SafeSearch, error) {
	svc, err := newService(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &SafeSearch{svc: svc}, nil
}

// Check reports adult, violence and medical likelihoods as Sexual, Violence
// and Medical severities.
func (s *SafeSearch) Check(ctx context.Context, image []byte) ([]caption.CategorySeverity, error) {
	resp, err := annotate(ctx, s.svc, image, &vision.Feature{Type: "SAFE_SEARCH_DETECTION"})
	if err != nil {
		return nil, err
	}
	annotation := resp.SafeSearchAnnotation
	if annotation == nil {
		return nil, errors.New("SAFE_SEARCH_DETECTION returned no annotation")
	}
	return []caption.CategorySeverity{
		{Category: "Sexual", Severity: likelihoodSeverity[annotation.Adult]},
		{Category: "Violence", Severity: likelihoodSeverity[annotation.Violence]},
		{Category: "Medical", Severity: likelihoodSeverity[annotation.Medical]},
	}, nil
}

var _ caption.SafetyChecker = (*SafeSearch)(nil)
