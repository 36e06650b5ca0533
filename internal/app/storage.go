package app

import (
	"context"
	"fmt"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/adapter/storage/memory"
	"storefront-wallet/internal/adapter/storage/postgres"
	redisStore "storefront-wallet/internal/adapter/storage/redis"
	"storefront-wallet/internal/adapter/storage/sqlite"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/internal/service"
	"storefront-wallet/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const connectTimeout = 10 * time.Second

// Backends is every storage port the services need, chosen by configuration.
type Backends struct {
	State     ports.StateStore
	Registry  ports.IdempotencyStore
	Nonces    ports.NonceStore
	RateLimit ports.RateLimitStore // nil without redis or when disabled
	Checkers  []ports.HealthChecker
}

// StorageModule opens the configured stores and closes them on stop.
var StorageModule = fx.Options(
	fx.Provide(
		NewBackends,
		func(b *Backends) ports.StateStore { return b.State },
		func(b *Backends) ports.IdempotencyStore { return b.Registry },
		func(b *Backends) ports.NonceStore { return b.Nonces },
	),
)

// NewBackends connects storage.driver for wallet state and, when needed,
// redis for the registry, nonces and rate limits.
func NewBackends(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (*Backends, error) {
	log = logger.Component(log, "storage")
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	b := &Backends{Nonces: memory.NewNonceStore()}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(db.Close))
		b.State = sqlite.NewStateRepo(db)
		b.Registry = sqlite.NewIdempotencyRepo(db)
		b.Checkers = append(b.Checkers, sqlite.NewHealthCheck(db))

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		lc.Append(fx.StopHook(pool.Close))
		b.State = postgres.NewStateRepo(pool)
		b.Registry = postgres.NewIdempotencyRepo(pool)
		b.Checkers = append(b.Checkers, postgres.NewHealthCheck(pool))

	case config.DriverMemory:
		log.Warn().Msg("memory storage selected, wallets are lost on restart")
		b.State = memory.NewStateStore()
		b.Registry = memory.NewIdempotencyStore()

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Registry.Driver == config.DriverRedis || cfg.RateLimit.Enabled {
		client, err := redisStore.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(client.Close))
		b.wireRedis(client, cfg)
	}

	if cfg.Storage.Seal {
		enc, err := service.NewAESEncryptionService(cfg.AES.Key)
		if err != nil {
			return nil, fmt.Errorf("storage.seal: %w", err)
		}
		b.State = service.NewSealedStateStore(b.State, enc)
	}

	log.Info().
		Str("driver", cfg.Storage.Driver).
		Str("registry", cfg.Registry.Driver).
		Bool("sealed", cfg.Storage.Seal).
		Bool("rate_limit", b.RateLimit != nil).
		Msg("storage ready")
	return b, nil
}

func (b *Backends) wireRedis(client *goredis.Client, cfg *config.Config) {
	if cfg.Registry.Driver == config.DriverRedis {
		b.Registry = redisStore.NewIdempotencyStore(client)
	}
	b.Nonces = redisStore.NewNonceStore(client)
	if cfg.RateLimit.Enabled {
		b.RateLimit = redisStore.NewRateLimitStore(client)
	}
	b.Checkers = append(b.Checkers, redisStore.NewHealthCheck(client))
}
