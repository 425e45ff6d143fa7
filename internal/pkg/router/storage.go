package router

import (
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/cache"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/env"
)

// NewLimiterStorage stores rate limiter counters in the cache server, in a
// database separate from the notification queue.
func NewLimiterStorage() *redisstorage.Storage {
	return redisstorage.New(redisstorage.Config{
		Host:     cache.Host(),
		Port:     cache.Port(),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1,
		Reset:    false,
	})
}
