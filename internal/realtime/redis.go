package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkhedmin/mkhedmin-api/internal/config"
)

// NewRedis builds the shared client and checks it once. It returns nil when Redis
// does not answer; every consumer treats a nil client as "run without Redis".
func NewRedis(cfg config.Config, log *slog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, continuing without it", "addr", cfg.RedisAddr, "err", err)
		_ = rdb.Close()
		return nil
	}
	log.Info("redis connected", "addr", cfg.RedisAddr)
	return rdb
}
