package faq

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	apperrors "github.com/yanqian/photo-caption/pkg/errors"
)

// ValidateCorpus rejects empty corpora, entries missing a question or answer
// and repeated non-zero ids.
func ValidateCorpus(entries []Entry) error {
	if len(entries) == 0 {
		return apperrors.Wrap(apperrors.CodeCorpusLoad, "corpus contains no entries", nil)
	}
	seen := make(map[int]int, len(entries))
	for i, entry := range entries {
		if entry.ID != 0 {
			if first, dup := seen[entry.ID]; dup {
				return apperrors.Wrap(apperrors.CodeCorpusLoad, fmt.Sprintf("entries %d and %d share id %d", first, i, entry.ID), nil)
			}
			seen[entry.ID] = i
		}
		if strings.TrimSpace(entry.Question) == "" {
			return apperrors.Wrap(apperrors.CodeCorpusLoad, fmt.Sprintf("entry %d is missing a question", i), nil)
		}
		if strings.TrimSpace(entry.Answer) == "" {
			return apperrors.Wrap(apperrors.CodeCorpusLoad, fmt.Sprintf("entry %d is missing an answer", i), nil)
		}
	}
	return nil
}

// Fingerprint digests the corpus in order together with the embedding model,
// so editing, reordering or switching models invalidates cached vectors.
// Entry ids are lookup keys only and do not affect the digest.
func Fingerprint(model string, entries []Entry) string {
	h := sha256.New()
	writeField := func(s string) {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(s)))
		h.Write(size[:])
		h.Write([]byte(s))
	}
	writeField(model)
	for _, entry := range entries {
		writeField(entry.Question)
		writeField(entry.Answer)
	}
	return hex.EncodeToString(h.Sum(nil))
}
