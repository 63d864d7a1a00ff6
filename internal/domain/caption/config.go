package caption

import "time"

// Config holds runtime knobs for the caption pipeline.
type Config struct {
	Language             string
	Model                string
	Temperature          float32
	MaxTokens            int
	MaxFileBytes         int64
	MinDimension         int
	MaxDimension         int
	RecommendedDimension int
	MaxContextChars      int
	MinTags              int
	MaxTags              int
	SafetyThresholds     map[string]int
	Timeout              time.Duration
}

const (
	defaultLanguage        = "English"
	defaultMaxTokens       = 350
	defaultMaxFileBytes    = 20 << 20
	defaultMinDimension    = 50
	defaultMaxDimension    = 16000
	defaultRecommendedDim  = 150
	defaultMaxContextChars = 200
	defaultMinTags         = 5
	defaultMaxTags         = 8
	defaultSafetyThreshold = 2

	minEntityScore       = 0.5
	strongEntityScore    = 0.99
	maxMatchingPages     = 5
	maxSimilarImages     = 3
	maxSuggestedEntities = 3
)

func (c Config) withDefaults() Config {
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = defaultMaxFileBytes
	}
	if c.MinDimension <= 0 {
		c.MinDimension = defaultMinDimension
	}
	if c.MaxDimension <= 0 {
		c.MaxDimension = defaultMaxDimension
	}
	if c.RecommendedDimension <= 0 {
		c.RecommendedDimension = defaultRecommendedDim
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = defaultMaxContextChars
	}
	if c.MinTags <= 0 {
		c.MinTags = defaultMinTags
	}
	if c.MaxTags < c.MinTags {
		c.MaxTags = defaultMaxTags
	}
	return c
}
