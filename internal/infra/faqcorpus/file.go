package faqcorpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/photo-caption/internal/domain/faq"
	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

type document struct {
	FAQs *[]faq.Entry `json:"faqs" yaml:"faqs"`
}

// FileSource reads the corpus from a JSON or YAML file of the form
// {"faqs": [{"id", "question", "answer"}]}.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource builds a source over fs. A nil fs means the OS filesystem.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, path: path}
}

// Load parses the corpus file. Entries without an id are numbered by
// position starting at 1.
func (s *FileSource) Load(_ context.Context) ([]faq.Entry, error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, apperrors.Wrap(apperrors.CodeCorpusLoad, "corpus path is not configured", nil)
	}
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCorpusLoad, fmt.Sprintf("read corpus %s", s.path), err)
	}

	var doc document
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &doc)
	default:
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCorpusLoad, fmt.Sprintf("parse corpus %s", s.path), err)
	}
	if doc.FAQs == nil {
		return nil, apperrors.Wrap(apperrors.CodeCorpusLoad, fmt.Sprintf("parse corpus %s", s.path), errors.New(`missing "faqs" list`))
	}

	entries := *doc.FAQs
	for i := range entries {
		if entries[i].ID == 0 {
			entries[i].ID = i + 1
		}
		entries[i].Question = strings.TrimSpace(entries[i].Question)
		entries[i].Answer = strings.TrimSpace(entries[i].Answer)
	}
	if err := faq.ValidateCorpus(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Path returns the configured corpus location.
func (s *FileSource) Path() string {
	return s.path
}

var _ faq.CorpusSource = (*FileSource)(nil)
