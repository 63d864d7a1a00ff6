package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(CodeEmbeddingService, "embed query", cause)

	require.ErrorIs(t, err, cause)
	require.True(t, IsCode(err, CodeEmbeddingService))
	require.Equal(t, "embed query: dial tcp: refused", err.Error())
}

func TestCodeOfNested(t *testing.T) {
	inner := Wrap(CodeCorpusLoad, "load corpus", nil)
	outer := fmt.Errorf("warm: %w", inner)

	require.Equal(t, CodeCorpusLoad, CodeOf(outer))
	require.Equal(t, "", CodeOf(fmt.Errorf("plain")))
}
