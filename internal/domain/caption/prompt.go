package caption

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

const sectionRule = "============================================================"

const styleRules = `Write a short caption (1-2 sentences) in a journalistic style, ready to be published under the photo.
If the user gave no context and the OCR text does not identify anything, do not describe people, actions or objects that are already visible.
Do not describe obvious visual elements (colours, shapes, layout) or the mood of the image. Avoid phrases such as "the photo shows", "the scene captures", "the image depicts" and their equivalents; never use the words photo, image, picture or scene.
For symbolic or illustrative photos refer directly to the abstract idea instead of saying that an object symbolises it.
Do not describe people's appearance, clothing or gestures; refer to the emotions, ideas and issues they express.
Draw on context and general knowledge about the subject: related social or historical facts about the people, nations or groups involved.
Keep a professional, neutral tone without sensationalism, and never speculate ("perhaps", "probably").`

// buildSystemPrompt asks for a strict JSON answer in the configured language.
func (s *service) buildSystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You generate a short photo caption and a list of %d-%d tags in %s.\n", s.cfg.MinTags, s.cfg.MaxTags, s.cfg.Language)
	b.WriteString("Use the detected labels, captions and OCR text provided below.\n")
	b.WriteString("A journalist may add a short description of people, places, events or context. When present it MUST be reflected in the caption and tags.\n")
	b.WriteString(jsonRules)
	return b.String()
}

const jsonRules = `Respond ONLY with a JSON object with the keys {"caption": "(1-2 sentences)", "tags": ["string", ...]}.
Critical rules: 1) only valid JSON; 2) no explanations, markdown or code fences; 3) no comments or trailing commas.`

// buildUserPrompt lays out the style rules followed by the vision, web,
// moderation and user context blocks.
func (s *service) buildUserPrompt(vision VisionSummary, web *WebContext, safety *SafetyReport, userContext string) (string, error) {
	visionJSON, err := json.Marshal(promptVision(vision))
	if err != nil {
		return "", fmt.Errorf("encode vision summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a caption and %d-%d tags in %s.\n", s.cfg.MinTags, s.cfg.MaxTags, s.cfg.Language)
	b.WriteString(styleRules)
	b.WriteString("\n")
	b.WriteString(jsonRules)
	b.WriteString("\n\n" + sectionRule + "\n")
	fmt.Fprintf(&b, "Vision JSON: %s.", visionJSON)

	if web != nil && (web.BestGuessLabel != "" || len(web.Entities) > 0) {
		b.WriteString("\n\n" + sectionRule + "\n")
		b.WriteString("WEB DETECTION:\n")
		if web.BestGuessLabel != "" {
			fmt.Fprintf(&b, "Best guess: %s\n", web.BestGuessLabel)
		}
		if len(web.Entities) > 0 {
			names := lo.Map(firstN(web.Entities, 10), func(e WebEntity, _ int) string {
				return fmt.Sprintf("%s (%.2f)", e.Description, e.Score)
			})
			fmt.Fprintf(&b, "Entities: %s\n", strings.Join(names, ", "))
		}
		b.WriteString("Treat these as hints; use them only when consistent with the vision data.")
	}

	if safety != nil && !safety.Safe && len(safety.Flags) > 0 {
		b.WriteString("\n\n" + sectionRule + "\n")
		b.WriteString("CONTENT MODERATION:\n")
		b.WriteString("Potentially sensitive content was detected in these categories:\n")
		for _, flag := range safety.Flags {
			fmt.Fprintf(&b, "- %s (severity %d/6)\n", moderationLabel(flag.Category), flag.Severity)
		}
		b.WriteString(moderationRules)
		b.WriteString(sectionRule)
	}

	if userContext != "" {
		b.WriteString("\n\n" + sectionRule + "\n")
		b.WriteString("ADDITIONAL CONTEXT FROM THE USER:\n")
		b.WriteString(userContext)
		b.WriteString("\n" + sectionRule + "\n")
		b.WriteString("This context comes from the journalist and is reliable. If it names people, dates, places or events, include them in the caption and tags.")
	}
	return b.String(), nil
}

const moderationRules = `
Handling sensitive content:
- Name things plainly when that fits a journalistic context.
- Do not distance the caption from the subject more than needed.
- For strongly sexual content (severity 6/6) assume pornographic material or objectification and say so in the caption.
- Social and cultural context matters more than a literal description.
- Use this information to understand the photo; do not add warnings for the reader.
`

var moderationLabels = map[string]string{
	"Sexual":   "Sexual content",
	"Violence": "Violence",
	"Hate":     "Hate speech",
	"SelfHarm": "Self-harm",
}

func moderationLabel(category string) string {
	if label, ok := moderationLabels[category]; ok {
		return label
	}
	return category
}

// promptVision drops region coordinates, which only add tokens to the prompt.
func promptVision(vision VisionSummary) any {
	type region struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	type summary struct {
		MainCaption   *Caption `json:"mainCaption,omitempty"`
		DenseCaptions []region `json:"denseCaptions,omitempty"`
		Tags          []Tag    `json:"tags,omitempty"`
		Landmarks     []Tag    `json:"landmarks,omitempty"`
		OCRText       string   `json:"ocrText,omitempty"`
	}
	return summary{
		MainCaption: vision.MainCaption,
		DenseCaptions: lo.Map(vision.DenseCaptions, func(d DenseCaption, _ int) region {
			return region{Text: d.Text, Confidence: d.Confidence}
		}),
		Tags:      vision.Tags,
		Landmarks: vision.Landmarks,
		OCRText:   vision.OCRText,
	}
}

type modelOutput struct {
	Caption string   `json:"caption"`
	Tags    []string `json:"tags"`
}

// parseModelOutput decodes the model reply. ok is false when the reply is
// not the expected JSON object, in which case the caller keeps the raw text.
func parseModelOutput(text string, maxTags int) (modelOutput, bool) {
	cleaned := stripCodeFence(text)
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}
	var out modelOutput
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return modelOutput{}, false
	}
	out.Caption = strings.TrimSpace(out.Caption)
	if out.Caption == "" {
		return modelOutput{}, false
	}
	tags := lo.FilterMap(out.Tags, func(tag string, _ int) (string, bool) {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		return tag, tag != ""
	})
	tags = lo.UniqBy(tags, strings.ToLower)
	out.Tags = firstN(tags, maxTags)
	return out, true
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
