package caption

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseModelOutput(t *testing.T) {
	out, ok := parseModelOutput(`{"caption": " Text. ", "tags": ["a", "A", " b ", "", "c"]}`, 2)
	require.True(t, ok)
	require.Equal(t, "Text.", out.Caption)
	require.Equal(t, []string{"a", "b"}, out.Tags)

	out, ok = parseModelOutput("```\n{\"caption\":\"Fenced.\",\"tags\":[]}\n```", 8)
	require.True(t, ok)
	require.Equal(t, "Fenced.", out.Caption)

	out, ok = parseModelOutput("Here you go: {\"caption\":\"Inline.\",\"tags\":[\"x\"]} thanks", 8)
	require.True(t, ok)
	require.Equal(t, "Inline.", out.Caption)

	_, ok = parseModelOutput("no json here", 8)
	require.False(t, ok)

	_, ok = parseModelOutput(`{"tags":["x"]}`, 8)
	require.False(t, ok)
}

func TestSummarizeWeb(t *testing.T) {
	raw := WebDetection{
		BestGuessLabels: []string{" eiffel tower "},
		Entities: []WebEntity{
			{Description: "Paris", Score: 0.7},
			{Description: "Eiffel Tower", Score: 1.2},
			{Description: "", Score: 0.9},
			{Description: "France", Score: 0.3},
			{Description: "Landmark", Score: 0.995},
		},
		MatchingPages: make([]MatchingPage, 7),
		SimilarImages: []string{"a", "b", "c", "d"},
	}
	web := summarizeWeb(raw)
	require.Equal(t, "eiffel tower", web.BestGuessLabel)
	require.Len(t, web.Entities, 3)
	require.Equal(t, "Eiffel Tower", web.Entities[0].Description)
	require.Len(t, web.MatchingPages, 5)
	require.Len(t, web.SimilarImages, 3)
	require.Equal(t, "eiffel tower, Eiffel Tower, Landmark", web.SuggestedContext)
}

func TestEvaluateSafety(t *testing.T) {
	thresholds := map[string]int{"Hate": 4, "SelfHarm": 4, "Sexual": 2, "Violence": 4}

	report := evaluateSafety([]CategorySeverity{
		{Category: "Sexual", Severity: 2},
		{Category: "Violence", Severity: 2},
		{Category: "Hate", Severity: 0},
	}, thresholds)
	require.False(t, report.Safe)
	require.Len(t, report.Flags, 1)
	require.Equal(t, "Sexual", report.Flags[0].Category)
	require.Equal(t, "low", report.Details["Violence"].Level)
	require.Equal(t, "safe", report.Details["Hate"].Level)

	report = evaluateSafety([]CategorySeverity{{Category: "Violence", Severity: 4}, {Category: "Other", Severity: 6}}, thresholds)
	require.False(t, report.Safe)
	require.Len(t, report.Flags, 2)
	require.Equal(t, "Other", report.Flags[0].Category)
	require.Equal(t, "high", report.Details["Other"].Level)
	require.Equal(t, "medium", report.Details["Violence"].Level)

	report = evaluateSafety(nil, thresholds)
	require.True(t, report.Safe)
}
