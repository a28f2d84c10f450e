// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"trustlink/config"

	"github.com/go-redis/redis/v8"
)

var (
	// AuthCodeCacheClient backs the single-use enrollment code store.
	AuthCodeCacheClient *redis.Client
	// DeviceCodeCacheClient backs the single-use device login code store.
	DeviceCodeCacheClient *redis.Client
	// OTPCacheClient backs purpose-bound OTP records.
	OTPCacheClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}

// InitRedis initializes all per-purpose Redis clients.
func InitRedis() {
	AuthCodeCacheClient = newRedisClient(config.AppConfig.RedisAuthCodeDB)
	DeviceCodeCacheClient = newRedisClient(config.AppConfig.RedisDeviceCodeDB)
	OTPCacheClient = newRedisClient(config.AppConfig.RedisOTPDB)
}

// GetAuthCodeCacheClient returns the Redis client for enrollment codes.
func GetAuthCodeCacheClient() *redis.Client {
	if AuthCodeCacheClient == nil {
		AuthCodeCacheClient = newRedisClient(config.AppConfig.RedisAuthCodeDB)
	}
	return AuthCodeCacheClient
}

// GetDeviceCodeCacheClient returns the Redis client for device login codes.
func GetDeviceCodeCacheClient() *redis.Client {
	if DeviceCodeCacheClient == nil {
		DeviceCodeCacheClient = newRedisClient(config.AppConfig.RedisDeviceCodeDB)
	}
	return DeviceCodeCacheClient
}

// GetOTPCacheClient returns the Redis client for OTP records.
func GetOTPCacheClient() *redis.Client {
	if OTPCacheClient == nil {
		OTPCacheClient = newRedisClient(config.AppConfig.RedisOTPDB)
	}
	return OTPCacheClient
}
