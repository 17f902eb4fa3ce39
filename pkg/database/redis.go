package database

import (
	"context"
	"fmt"
	"time"

	"go-pos/pkg/config"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// InitRedis connects to redis and pings it once.
func InitRedis(cfg config.RedisConfig, entry *log.Entry) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}

	entry.WithField("addr", cfg.Address).Info("redis connected")
	return rdb, nil
}
