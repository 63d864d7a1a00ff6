package caption

import (
	"context"

	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
)

// VisionAnalyzer describes an image: captions, tags and OCR text.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (VisionSummary, error)
}

// WebDetector looks the image up on the web.
type WebDetector interface {
	Detect(ctx context.Context, image []byte) (WebDetection, error)
}

// SafetyChecker scores the image against moderation categories.
type SafetyChecker interface {
	Check(ctx context.Context, image []byte) ([]CategorySeverity, error)
}

// ChatClient generates the caption.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Archive stores uploaded images and analysis records.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
