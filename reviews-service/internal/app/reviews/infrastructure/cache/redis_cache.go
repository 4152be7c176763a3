package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"

	"github.com/redis/go-redis/v9"
)

const (
	metricsService = "reviews-service"

	activeReviewsKey     = "reviews:active"
	productReviewsPrefix = "reviews:product:"
)

// RedisReviewCache хранит списки под ключами вида <list>:v<generation>.
// Счетчик <list>:gen живет без TTL, старые версии списков истекают сами
type RedisReviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func NewRedisReviewCache(client *redis.Client, ttl time.Duration) *RedisReviewCache {
	return &RedisReviewCache{client: client, ttl: ttl}
}

func productKey(productID uint) string {
	return productReviewsPrefix + strconv.FormatUint(uint64(productID), 10)
}

func generationKey(listKey string) string {
	return listKey + ":gen"
}

func versionedKey(listKey string, generation int64) string {
	return listKey + ":v" + strconv.FormatInt(generation, 10)
}

func (c *RedisReviewCache) GetActive(ctx context.Context) ([]entity.Review, int64, error) {
	return c.get(ctx, activeReviewsKey, activeReviewsKey)
}

func (c *RedisReviewCache) SetActive(ctx context.Context, generation int64, reviews []entity.Review) error {
	return c.set(ctx, versionedKey(activeReviewsKey, generation), reviews)
}

func (c *RedisReviewCache) GetProductReviews(ctx context.Context, productID uint) ([]entity.Review, int64, error) {
	return c.get(ctx, productKey(productID), productReviewsPrefix)
}

func (c *RedisReviewCache) SetProductReviews(ctx context.Context, productID uint, generation int64, reviews []entity.Review) error {
	return c.set(ctx, versionedKey(productKey(productID), generation), reviews)
}

func (c *RedisReviewCache) Invalidate(ctx context.Context, productID uint) error {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpSet)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(activeReviewsKey))
		pipe.Incr(ctx, generationKey(productKey(productID)))
		return nil
	})
	timer.ObserveDuration()

	if err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpSet)
		return fmt.Errorf("failed to invalidate reviews cache: %w", err)
	}
	return nil
}

// get сначала читает поколение, затем список этого поколения.
// keyPrefix - метка для метрик, чтобы не плодить серии по каждому товару
func (c *RedisReviewCache) get(ctx context.Context, listKey, keyPrefix string) ([]entity.Review, int64, error) {
	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	generation, err := c.client.Get(ctx, generationKey(listKey)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.RecordRedisError(metricsService, metrics.RedisOpGet)
			return nil, 0, fmt.Errorf("failed to get reviews cache generation: %w", err)
		}
		generation = 0
	}

	data, err := c.client.Get(ctx, versionedKey(listKey, generation)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(metricsService, keyPrefix)
			return nil, generation, nil
		}
		metrics.RecordRedisError(metricsService, metrics.RedisOpGet)
		return nil, 0, fmt.Errorf("failed to get reviews from cache: %w", err)
	}

	reviews := []entity.Review{}
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal cached reviews: %w", err)
	}

	metrics.RecordCacheHit(metricsService, keyPrefix)
	return reviews, generation, nil
}

func (c *RedisReviewCache) set(ctx context.Context, key string, reviews []entity.Review) error {
	if reviews == nil {
		reviews = []entity.Review{}
	}

	data, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("failed to marshal reviews: %w", err)
	}

	timer := metrics.NewRedisTimer(metricsService, metrics.RedisOpSet)
	err = c.client.Set(ctx, key, data, c.ttl).Err()
	timer.ObserveDuration()

	if err != nil {
		metrics.RecordRedisError(metricsService, metrics.RedisOpSet)
		return fmt.Errorf("failed to set reviews in cache: %w", err)
	}
	return nil
}
