package caption

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// summarizeWeb keeps confident entities and derives a suggested context
// from the best guess label and the strongest entities.
func summarizeWeb(raw WebDetection) WebContext {
	out := WebContext{}
	if len(raw.BestGuessLabels) > 0 {
		out.BestGuessLabel = strings.TrimSpace(raw.BestGuessLabels[0])
	}

	out.Entities = lo.Filter(raw.Entities, func(e WebEntity, _ int) bool {
		return strings.TrimSpace(e.Description) != "" && e.Score > minEntityScore
	})
	sort.SliceStable(out.Entities, func(i, j int) bool { return out.Entities[i].Score > out.Entities[j].Score })

	out.MatchingPages = firstN(raw.MatchingPages, maxMatchingPages)
	out.SimilarImages = firstN(raw.SimilarImages, maxSimilarImages)

	var parts []string
	if out.BestGuessLabel != "" {
		parts = append(parts, out.BestGuessLabel)
	}
	for _, entity := range firstN(out.Entities, maxSuggestedEntities) {
		if entity.Score > strongEntityScore {
			parts = append(parts, entity.Description)
		}
	}
	out.SuggestedContext = strings.Join(parts, ", ")
	return out
}

func firstN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
