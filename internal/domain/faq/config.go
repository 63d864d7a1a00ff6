package faq

// Config holds runtime knobs for the FAQ service.
type Config struct {
	Model               string
	EmbeddingModel      string
	Temperature         float32
	Prompt              string
	FallbackAnswer      string
	SimilarityThreshold float64
	TopK                int
	GenerateAnswer      bool
}

const (
	defaultFallbackAnswer = "I don't have an answer to that question yet."
	highConfidenceScore   = 0.85
)
