package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/yanqian/photo-caption/internal/domain/caption"
	"github.com/yanqian/photo-caption/internal/infra/objectstore"
	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

var analysisIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ObjectReader reads persisted analyses.
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error)
}

// Summary is one row of the analyses listing.
type Summary struct {
	AnalysisID       string    `json:"analysisId"`
	Timestamp        time.Time `json:"timestamp"`
	OriginalFilename string    `json:"originalFilename"`
	Caption          string    `json:"caption,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Safe             *bool     `json:"safe,omitempty"`
	UserContext      string    `json:"userContext,omitempty"`
}

// Stats summarises storage usage.
type Stats struct {
	ImageCount  int     `json:"imageCount"`
	ResultCount int     `json:"resultCount"`
	TotalSizeMB float64 `json:"totalSizeMb"`
}

// Service exposes the review side of persisted analyses.
type Service interface {
	List(ctx context.Context, limit int) ([]Summary, error)
	Get(ctx context.Context, analysisID string) (caption.AnalysisRecord, error)
	Stats(ctx context.Context) (Stats, error)
}

type service struct {
	store  ObjectReader
	logger *slog.Logger
}

// NewService wires up the review domain.
func NewService(store ObjectReader, logger *slog.Logger) Service {
	return &service{store: store, logger: logger.With("component", "review.service")}
}

func (s *service) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	objects, err := s.store.List(ctx, caption.ResultsPrefix())
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	objects = lo.Filter(objects, func(o objectstore.ObjectInfo, _ int) bool {
		return strings.HasSuffix(o.Key, ".json")
	})
	sort.SliceStable(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.After(objects[j].LastModified)
		}
		return objects[i].Key > objects[j].Key
	})

	out := make([]Summary, 0, limit)
	for _, obj := range objects {
		if len(out) == limit {
			break
		}
		record, ok, err := s.load(ctx, obj.Key)
		if err != nil {
			s.logger.Warn("skipping unreadable analysis", "key", obj.Key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		out = append(out, summarize(record))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, analysisID string) (caption.AnalysisRecord, error) {
	analysisID = strings.TrimSpace(analysisID)
	if !analysisIDPattern.MatchString(analysisID) {
		return caption.AnalysisRecord{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid analysis id", nil)
	}
	record, ok, err := s.load(ctx, caption.ResultKey(analysisID))
	if err != nil {
		return caption.AnalysisRecord{}, fmt.Errorf("load analysis %s: %w", analysisID, err)
	}
	if !ok {
		return caption.AnalysisRecord{}, apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("analysis %s not found", analysisID), nil)
	}
	return record, nil
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	images, err := s.store.List(ctx, caption.ImagesPrefix())
	if err != nil {
		return Stats{}, fmt.Errorf("list images: %w", err)
	}
	results, err := s.store.List(ctx, caption.ResultsPrefix())
	if err != nil {
		return Stats{}, fmt.Errorf("list results: %w", err)
	}
	total := lo.SumBy(append(images, results...), func(o objectstore.ObjectInfo) int64 { return o.Size })
	return Stats{
		ImageCount:  len(images),
		ResultCount: len(results),
		TotalSizeMB: float64(int64(float64(total)/(1<<20)*100+0.5)) / 100,
	}, nil
}

func (s *service) load(ctx context.Context, key string) (caption.AnalysisRecord, bool, error) {
	data, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return caption.AnalysisRecord{}, ok, err
	}
	var record caption.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return caption.AnalysisRecord{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return record, true, nil
}

func summarize(record caption.AnalysisRecord) Summary {
	summary := Summary{
		AnalysisID:       record.AnalysisID,
		Timestamp:        record.Timestamp,
		OriginalFilename: record.OriginalFilename,
		Caption:          record.Result.Caption,
		Tags:             record.Result.Tags,
		UserContext:      record.UserContext,
	}
	if record.Result.Safety != nil {
		safe := record.Result.Safety.Safe
		summary.Safe = &safe
	}
	return summary
}
