package faqcorpus

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

func TestFileSourceLoadsJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "faq.json", []byte(`{"faqs":[
		{"id": 10, "question": " What is this app? ", "answer": "It generates captions."},
		{"question": "Is it free?", "answer": "Yes."}
	]}`), 0o644))

	entries, err := NewFileSource(fs, "faq.json").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 10, entries[0].ID)
	require.Equal(t, "What is this app?", entries[0].Question)
	require.Equal(t, 2, entries[1].ID)
}

func TestFileSourceLoadsYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "faq.yaml", []byte("faqs:\n  - question: What is this app?\n    answer: It generates captions.\n"), 0o644))

	entries, err := NewFileSource(fs, "faq.yaml").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, entries[0].ID)
}

func TestFileSourceErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "broken.json", []byte(`{"faqs": [`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "nolist.json", []byte(`{"items": []}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "empty.json", []byte(`{"faqs": []}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "blank.json", []byte(`{"faqs": [{"question": "q", "answer": "  "}]}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "dupid.json", []byte(`{"faqs": [
		{"id": 2, "question": "q", "answer": "a"},
		{"question": "r", "answer": "b"}
	]}`), 0o644))

	for _, path := range []string{"missing.json", "broken.json", "nolist.json", "empty.json", "blank.json", "dupid.json", ""} {
		t.Run(path, func(t *testing.T) {
			_, err := NewFileSource(fs, path).Load(context.Background())
			require.True(t, apperrors.IsCode(err, apperrors.CodeCorpusLoad), "got %v", err)
		})
	}
}
