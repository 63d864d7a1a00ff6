package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	LLM          LLMConfig          `yaml:"llm"`
	FAQ          FAQConfig          `yaml:"faq"`
	Caption      CaptionConfig      `yaml:"caption"`
	Vision       VisionConfig       `yaml:"vision"`
	WebDetection WebDetectionConfig `yaml:"webDetection"`
	Safety       SafetyConfig       `yaml:"safety"`
	Storage      StorageConfig      `yaml:"storage"`
	Auth         AuthConfig         `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains OpenAI or Azure OpenAI settings. Setting APIVersion
// switches the client to Azure deployment-style URLs.
type LLMConfig struct {
	APIKey              string        `yaml:"apiKey"`
	BaseURL             string        `yaml:"baseUrl"`
	APIVersion          string        `yaml:"apiVersion"`
	EmbeddingAPIVersion string        `yaml:"embeddingApiVersion"`
	Model               string        `yaml:"model"`
	EmbeddingModel      string        `yaml:"embeddingModel"`
	Temperature         float32       `yaml:"temperature"`
	Timeout             time.Duration `yaml:"timeout"`
}

// FAQConfig controls the FAQ semantic matcher.
type FAQConfig struct {
	CorpusPath          string               `yaml:"corpusPath"`
	SimilarityThreshold float64              `yaml:"similarityThreshold"`
	TopK                int                  `yaml:"topK"`
	GenerateAnswer      bool                 `yaml:"generateAnswer"`
	Prompt              string               `yaml:"prompt"`
	FallbackAnswer      string               `yaml:"fallbackAnswer"`
	WarmOnStart         bool                 `yaml:"warmOnStart"`
	Cache               EmbeddingCacheConfig `yaml:"cache"`
}

// EmbeddingCacheConfig selects where corpus embeddings are persisted.
type EmbeddingCacheConfig struct {
	Backend  string         `yaml:"backend"`
	Path     string         `yaml:"path"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CaptionConfig drives the photo caption pipeline.
type CaptionConfig struct {
	Language             string        `yaml:"language"`
	Model                string        `yaml:"model"`
	Temperature          float32       `yaml:"temperature"`
	MaxTokens            int           `yaml:"maxTokens"`
	MaxFileMB            int           `yaml:"maxFileMb"`
	MinDimension         int           `yaml:"minDimension"`
	MaxDimension         int           `yaml:"maxDimension"`
	RecommendedDimension int           `yaml:"recommendedDimension"`
	MaxContextChars      int           `yaml:"maxContextChars"`
	MinTags              int           `yaml:"minTags"`
	MaxTags              int           `yaml:"maxTags"`
	Timeout              time.Duration `yaml:"timeout"`
}

// VisionConfig points at the image analysis API.
type VisionConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	APIKey     string   `yaml:"apiKey"`
	APIVersion string   `yaml:"apiVersion"`
	Features   []string `yaml:"features"`
}

// WebDetectionConfig points at the web entity detection API.
type WebDetectionConfig struct {
	Enabled         bool   `yaml:"enabled"`
	APIKey          string `yaml:"apiKey"`
	CredentialsFile string `yaml:"credentialsFile"`
	MaxResults      int64  `yaml:"maxResults"`
}

// Content moderation providers.
const (
	SafetyProviderAzure = "azure"
	SafetyProviderGCV   = "gcv"
)

// SafetyConfig points at the content moderation API. Provider is "azure"
// (Content Safety) or "gcv" (SafeSearch, using the web detection credentials).
type SafetyConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Provider   string         `yaml:"provider"`
	Endpoint   string         `yaml:"endpoint"`
	APIKey     string         `yaml:"apiKey"`
	APIVersion string         `yaml:"apiVersion"`
	Thresholds map[string]int `yaml:"thresholds"`
}

// StorageConfig configures S3-compatible persistence of analyses.
type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// AuthConfig protects the review endpoints.
type AuthConfig struct {
	Secret       string        `yaml:"secret"`
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"passwordHash"`
	TokenTTL     time.Duration `yaml:"tokenTtl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")

	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.APIVersion, "LLM_API_VERSION")
	setString(&cfg.LLM.EmbeddingAPIVersion, "LLM_EMBEDDING_API_VERSION")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	setString(&cfg.FAQ.CorpusPath, "FAQ_CORPUS_PATH")
	if v := os.Getenv("FAQ_SIMILARITY_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.SimilarityThreshold = parsed
		}
	}
	setInt(&cfg.FAQ.TopK, "FAQ_TOP_K")
	setBool(&cfg.FAQ.GenerateAnswer, "FAQ_GENERATE_ANSWER")
	setString(&cfg.FAQ.Prompt, "FAQ_PROMPT")
	setString(&cfg.FAQ.FallbackAnswer, "FAQ_FALLBACK_ANSWER")
	setBool(&cfg.FAQ.WarmOnStart, "FAQ_WARM_ON_START")
	setString(&cfg.FAQ.Cache.Backend, "FAQ_CACHE_BACKEND")
	setString(&cfg.FAQ.Cache.Path, "FAQ_CACHE_PATH")
	setString(&cfg.FAQ.Cache.Redis.Addr, "FAQ_CACHE_REDIS_ADDR")
	setString(&cfg.FAQ.Cache.Redis.Key, "FAQ_CACHE_REDIS_KEY")
	setString(&cfg.FAQ.Cache.Postgres.DSN, "FAQ_CACHE_POSTGRES_DSN")
	if v := os.Getenv("FAQ_CACHE_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.Cache.Postgres.MaxConns = int32(parsed)
		}
	}

	setString(&cfg.Caption.Language, "CAPTION_LANGUAGE")
	setString(&cfg.Caption.Model, "CAPTION_MODEL")
	setInt(&cfg.Caption.MaxFileMB, "CAPTION_MAX_FILE_MB")
	setInt(&cfg.Caption.MaxContextChars, "CAPTION_MAX_CONTEXT_CHARS")
	setDuration(&cfg.Caption.Timeout, "CAPTION_TIMEOUT")

	setString(&cfg.Vision.Endpoint, "VISION_ENDPOINT")
	setString(&cfg.Vision.APIKey, "VISION_API_KEY")
	setString(&cfg.Vision.APIVersion, "VISION_API_VERSION")

	setBool(&cfg.WebDetection.Enabled, "WEB_DETECTION_ENABLED")
	setString(&cfg.WebDetection.APIKey, "WEB_DETECTION_API_KEY")
	setString(&cfg.WebDetection.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	setBool(&cfg.Safety.Enabled, "SAFETY_ENABLED")
	setString(&cfg.Safety.Provider, "SAFETY_PROVIDER")
	setString(&cfg.Safety.Endpoint, "SAFETY_ENDPOINT")
	setString(&cfg.Safety.APIKey, "SAFETY_API_KEY")

	setBool(&cfg.Storage.Enabled, "STORAGE_ENABLED")
	setString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "STORAGE_REGION")

	setString(&cfg.Auth.Secret, "AUTH_SECRET")
	setString(&cfg.Auth.Username, "AUTH_USERNAME")
	setString(&cfg.Auth.PasswordHash, "AUTH_PASSWORD_HASH")
	setDuration(&cfg.Auth.TokenTTL, "AUTH_TOKEN_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/captions",
					"/api/v1/auth/login",
				},
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.7,
			Timeout:        60 * time.Second,
		},
		FAQ: FAQConfig{
			CorpusPath:          "configs/faq_data.json",
			SimilarityThreshold: 0.75,
			TopK:                3,
			Prompt:              "You are a helpful FAQ assistant for a press photo captioning tool. Answer using the provided FAQ entries, naturally and concisely (2-4 sentences). If none of them relate to the question, say so honestly.",
			FallbackAnswer:      "I don't have an answer to that question yet. Could you rephrase it or ask something more specific?",
			WarmOnStart:         true,
			Cache: EmbeddingCacheConfig{
				Backend: "file",
				Path:    "data/faq_embeddings_cache.json",
				Redis: RedisConfig{
					Key: "faq:embeddings",
				},
				Postgres: PostgresConfig{
					MaxConns: 4,
				},
			},
		},
		Caption: CaptionConfig{
			Language:             "Polish",
			Temperature:          0.2,
			MaxTokens:            350,
			MaxFileMB:            20,
			MinDimension:         50,
			MaxDimension:         16000,
			RecommendedDimension: 150,
			MaxContextChars:      200,
			MinTags:              5,
			MaxTags:              8,
			Timeout:              60 * time.Second,
		},
		Vision: VisionConfig{
			APIVersion: "2024-02-01",
			Features:   []string{"caption", "denseCaptions", "read", "tags"},
		},
		WebDetection: WebDetectionConfig{
			MaxResults: 20,
		},
		Safety: SafetyConfig{
			Provider:   SafetyProviderAzure,
			APIVersion: "2024-09-01",
			Thresholds: map[string]int{
				"Hate":     4,
				"Medical":  4,
				"SelfHarm": 4,
				"Sexual":   2,
				"Violence": 4,
			},
		},
		Storage: StorageConfig{
			Bucket: "user-uploads",
			Region: "auto",
		},
		Auth: AuthConfig{
			Username: "reviewer",
			TokenTTL: 12 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if strings.TrimSpace(c.FAQ.CorpusPath) == "" {
		return errors.New("faq.corpusPath cannot be empty")
	}
	if c.FAQ.SimilarityThreshold < -1 || c.FAQ.SimilarityThreshold > 1 {
		return errors.New("faq.similarityThreshold must be within [-1, 1]")
	}
	if c.FAQ.TopK < 0 {
		return errors.New("faq.topK cannot be negative")
	}
	if c.FAQ.FallbackAnswer == "" {
		return errors.New("faq.fallbackAnswer cannot be empty")
	}
	switch strings.ToLower(c.FAQ.Cache.Backend) {
	case "", "memory":
	case "file":
		if strings.TrimSpace(c.FAQ.Cache.Path) == "" {
			return errors.New("faq.cache.path cannot be empty for the file backend")
		}
	case "valkey", "redis":
		if strings.TrimSpace(c.FAQ.Cache.Redis.Addr) == "" {
			return errors.New("faq.cache.redis.addr cannot be empty for the valkey backend")
		}
	case "postgres":
		if strings.TrimSpace(c.FAQ.Cache.Postgres.DSN) == "" {
			return errors.New("faq.cache.postgres.dsn cannot be empty for the postgres backend")
		}
	default:
		return fmt.Errorf("faq.cache.backend %q is not supported", c.FAQ.Cache.Backend)
	}
	if strings.TrimSpace(c.Caption.Language) == "" {
		return errors.New("caption.language cannot be empty")
	}
	if c.Caption.MaxFileMB <= 0 {
		return errors.New("caption.maxFileMb must be positive")
	}
	if c.Caption.MinDimension <= 0 || c.Caption.MaxDimension < c.Caption.MinDimension {
		return errors.New("caption dimension bounds are inconsistent")
	}
	if c.Caption.MinTags <= 0 || c.Caption.MaxTags < c.Caption.MinTags {
		return errors.New("caption tag bounds are inconsistent")
	}
	if c.Safety.Enabled {
		switch c.Safety.Provider {
		case "", SafetyProviderAzure:
			if strings.TrimSpace(c.Safety.Endpoint) == "" {
				return errors.New("safety.endpoint cannot be empty when safety is enabled")
			}
		case SafetyProviderGCV:
		default:
			return fmt.Errorf("safety.provider %q is not supported", c.Safety.Provider)
		}
	}
	if c.Storage.Enabled && strings.TrimSpace(c.Storage.Bucket) == "" {
		return errors.New("storage.bucket cannot be empty when storage is enabled")
	}
	if c.Auth.Secret != "" && c.Auth.TokenTTL <= 0 {
		return errors.New("auth.tokenTtl must be positive")
	}
	return nil
}
