package database

import (
	"context"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/pkg/log"

	"github.com/go-redis/redis/v8"
)

// RDB 在 Redis 未启用时保持为 nil。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接
func InitRedis(cfg config.RedisConfig) {
	if !cfg.Enabled {
		log.Info("Redis disabled, admin token revocation is in-memory only")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := RDB.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
