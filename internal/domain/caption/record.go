package caption

import (
	"context"
	"encoding/json"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	imagesPrefix  = "images/"
	resultsPrefix = "results/"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ResultKey is the object key of a persisted analysis record.
func ResultKey(analysisID string) string {
	return resultsPrefix + analysisID + ".json"
}

// ResultsPrefix is the key prefix under which analysis records live.
func ResultsPrefix() string {
	return resultsPrefix
}

// ImagesPrefix is the key prefix under which uploaded images live.
func ImagesPrefix() string {
	return imagesPrefix
}

func imageKey(analysisID, filename string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	return imagesPrefix + analysisID + "_" + name
}

// newAnalysisID returns analysis_<yyyymmdd_hhmmss>_<8 hex chars>.
func newAnalysisID(at time.Time) string {
	return "analysis_" + at.UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// record stores the image and the analysis. Failures are logged only.
func (s *service) record(ctx context.Context, req ImageRequest, result Result) {
	if s.archive == nil {
		return
	}
	key := imageKey(result.AnalysisID, req.Filename)
	if err := s.archive.Put(ctx, key, req.Content, result.Image.MimeType); err != nil {
		s.logger.Warn("failed to store image", "analysisId", result.AnalysisID, "error", err)
		return
	}
	rec := AnalysisRecord{
		AnalysisID:       result.AnalysisID,
		Timestamp:        s.now().UTC(),
		OriginalFilename: req.Filename,
		ImageKey:         key,
		UserContext:      result.ContextUsed,
		Result:           result,
	}
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode analysis record", "analysisId", result.AnalysisID, "error", err)
		return
	}
	if err := s.archive.Put(ctx, ResultKey(result.AnalysisID), payload, "application/json"); err != nil {
		s.logger.Warn("failed to store analysis record", "analysisId", result.AnalysisID, "error", err)
	}
}
