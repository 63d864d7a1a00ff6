package embeddingcache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/photo-caption/internal/domain/faq"
	"github.com/yanqian/photo-caption/internal/infra/config"
)

// Open picks the embedding cache backend from configuration. Network backends
// that cannot be reached fall back to memory so the matcher still serves
// requests, recomputing embeddings once per process.
func Open(ctx context.Context, cfg config.EmbeddingCacheConfig, fs afero.Fs, logger *slog.Logger) faq.CacheStore {
	fallback := NewMemoryStore()
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "file":
		logger.Info("faq embedding cache on disk", "path", cfg.Path)
		return NewFileStore(fs, cfg.Path)
	case "valkey", "redis":
		opt, err := buildValkeyOptions(cfg.Redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return fallback
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return fallback
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
			return fallback
		}
		logger.Info("faq valkey embedding cache enabled", "addr", cfg.Redis.Addr)
		return NewValkeyStore(client, cfg.Redis.Key)
	case "postgres":
		pool, err := openPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Error("postgres unavailable, falling back to memory cache", "error", err)
			return fallback
		}
		store := NewPostgresStore(pool)
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(schemaCtx); err != nil {
			logger.Error("postgres schema setup failed, falling back to memory cache", "error", err)
			pool.Close()
			return fallback
		}
		logger.Info("faq postgres embedding cache enabled")
		return store
	default:
		logger.Info("faq embedding cache kept in memory")
		return fallback
	}
}

func openPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
