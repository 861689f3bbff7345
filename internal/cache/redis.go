package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dparkr/dparkr/config"
	"github.com/dparkr/dparkr/internal/domain"
	"github.com/redis/go-redis/v9"
)

const activeParkingsKey = "cache:parkings:active"

type RedisCache struct {
	client      *redis.Client
	parkingsTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, parkingsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      client,
		parkingsTTL: parkingsTTL,
	}
}

// GetActiveParkings returns (nil, nil) on a cache miss.
func (c *RedisCache) GetActiveParkings(ctx context.Context) ([]domain.ParkingSpace, error) {
	data, err := c.client.Get(ctx, activeParkingsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var parkings []domain.ParkingSpace
	if err := json.Unmarshal(data, &parkings); err != nil {
		return nil, err
	}
	return parkings, nil
}

func (c *RedisCache) SetActiveParkings(ctx context.Context, parkings []domain.ParkingSpace) error {
	payload, err := json.Marshal(parkings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeParkingsKey, payload, c.parkingsTTL).Err()
}

func (c *RedisCache) InvalidateActiveParkings(ctx context.Context) error {
	return c.client.Del(ctx, activeParkingsKey).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
