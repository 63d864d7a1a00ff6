package caption

import (
	"time"

	"github.com/yanqian/photo-caption/pkg/metrics"
)

// ImageRequest carries an uploaded photo and optional journalist context.
type ImageRequest struct {
	Filename    string
	Content     []byte
	UserContext string
}

// ImageInfo describes a validated upload.
type ImageInfo struct {
	Format    string   `json:"format"`
	MimeType  string   `json:"mimeType"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	SizeBytes int      `json:"sizeBytes"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Caption is a generated description with its confidence.
type Caption struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// BoundingBox locates a region of the image in pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// DenseCaption is a caption for one region of the image.
type DenseCaption struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// Tag is a detected label.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// VisionSummary is the condensed output of the image analysis API.
type VisionSummary struct {
	MainCaption   *Caption       `json:"mainCaption,omitempty"`
	DenseCaptions []DenseCaption `json:"denseCaptions,omitempty"`
	Tags          []Tag          `json:"tags,omitempty"`
	Landmarks     []Tag          `json:"landmarks,omitempty"`
	OCRText       string         `json:"ocrText,omitempty"`
}

// WebEntity is an entity the web detection API associated with the image.
type WebEntity struct {
	Description string  `json:"description"`
	EntityID    string  `json:"entityId,omitempty"`
	Score       float64 `json:"score"`
}

// MatchingPage is a web page that carries the same or a similar image.
type MatchingPage struct {
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	FullMatches    int    `json:"fullMatches"`
	PartialMatches int    `json:"partialMatches"`
}

// WebDetection is the raw web detection payload before filtering.
type WebDetection struct {
	BestGuessLabels []string
	Entities        []WebEntity
	MatchingPages   []MatchingPage
	SimilarImages   []string
}

// WebContext is the filtered web detection used for prompting.
type WebContext struct {
	BestGuessLabel   string         `json:"bestGuessLabel,omitempty"`
	Entities         []WebEntity    `json:"entities,omitempty"`
	MatchingPages    []MatchingPage `json:"matchingPages,omitempty"`
	SimilarImages    []string       `json:"similarImages,omitempty"`
	SuggestedContext string         `json:"suggestedContext,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// CategorySeverity is one moderation category score, 0 to 6.
type CategorySeverity struct {
	Category string `json:"category"`
	Severity int    `json:"severity"`
}

// SafetyDetail explains one moderation category.
type SafetyDetail struct {
	Severity  int    `json:"severity"`
	Threshold int    `json:"threshold"`
	Level     string `json:"level"`
	Flagged   bool   `json:"flagged"`
}

// SafetyFlag reports a category at or above its threshold.
type SafetyFlag struct {
	Category string `json:"category"`
	Severity int    `json:"severity"`
	Level    string `json:"level"`
}

// SafetyReport is the moderation verdict. Safe stays true when the check
// itself failed; Error then carries the reason.
type SafetyReport struct {
	Safe    bool                    `json:"safe"`
	Flags   []SafetyFlag            `json:"flags,omitempty"`
	Details map[string]SafetyDetail `json:"details,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Result is returned to the HTTP transport.
type Result struct {
	AnalysisID  string              `json:"analysisId"`
	Caption     string              `json:"caption,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Raw         string              `json:"raw,omitempty"`
	Image       ImageInfo           `json:"image"`
	Vision      VisionSummary       `json:"vision"`
	Web         *WebContext         `json:"web,omitempty"`
	Safety      *SafetyReport       `json:"safety,omitempty"`
	ContextUsed string              `json:"contextUsed,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	DurationMs  int64               `json:"durationMs"`
	TokenUsage  *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// AnalysisRecord is the persisted form of one analysis.
type AnalysisRecord struct {
	AnalysisID       string    `json:"analysis_id"`
	Timestamp        time.Time `json:"timestamp"`
	OriginalFilename string    `json:"original_filename"`
	ImageKey         string    `json:"image_blob_name"`
	UserContext      string    `json:"user_context,omitempty"`
	Result           Result    `json:"results"`
}
