package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gescom/internal/config"
	"github.com/smallbiznis/gescom/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewLocker),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Jobs      *metrics.JobMetrics `optional:"true"`
	Metrics   *metrics.Metrics    `optional:"true"`
}

// NewLocker picks the lock backend from configuration. The redis backend owns
// its client and closes it on shutdown.
func NewLocker(p Params) Locker {
	return Instrument(newBackend(p.Lifecycle, p.Config, p.Log), p.Jobs, p.Metrics)
}

func newBackend(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	if cfg.Lock.Backend != config.LockBackendRedis {
		log.Info("using in-process locker", zap.Duration("timeout", cfg.Lock.Timeout))
		return NewLocalLocker(cfg.Lock.Timeout)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	log.Info("using redis locker",
		zap.String("addr", cfg.Redis.Addr),
		zap.Duration("timeout", cfg.Lock.Timeout),
		zap.Duration("ttl", cfg.Lock.TTL),
	)
	return NewRedisLocker(client, cfg.Lock.Timeout, cfg.Lock.TTL)
}
