package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAreValid(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 0.75, cfg.FAQ.SimilarityThreshold)
	require.Equal(t, "file", cfg.FAQ.Cache.Backend)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
faq:
  corpusPath: /srv/faq.yaml
  similarityThreshold: 0.6
  cache:
    backend: memory
caption:
  language: English
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("FAQ_TOP_K", "5")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/srv/faq.yaml", cfg.FAQ.CorpusPath)
	require.Equal(t, 0.6, cfg.FAQ.SimilarityThreshold)
	require.Equal(t, "memory", cfg.FAQ.Cache.Backend)
	require.Equal(t, "English", cfg.Caption.Language)
	require.Equal(t, 5, cfg.FAQ.TopK)
	require.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	require.Equal(t, 8, cfg.Caption.MaxTags)
}

func TestValidateRejectsUnknownCacheBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.FAQ.Cache.Backend = "s3"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresValkeyAddr(t *testing.T) {
	cfg := defaultConfig()
	cfg.FAQ.Cache.Backend = "valkey"
	require.ErrorContains(t, cfg.Validate(), "redis.addr")
}

func TestValidateSafetyProvider(t *testing.T) {
	cfg := defaultConfig()
	cfg.Safety.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "safety.endpoint")

	cfg.Safety.Provider = SafetyProviderGCV
	require.NoError(t, cfg.Validate())

	cfg.Safety.Provider = "rekognition"
	require.ErrorContains(t, cfg.Validate(), "safety.provider")
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
