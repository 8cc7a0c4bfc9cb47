package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"spotai-game-service/internal/domain"
)

// CollectionLoader fetches the image-pair collection from a backing store
// (e.g. Postgres).
type CollectionLoader interface {
	LoadCollection(ctx context.Context) (domain.ImageCollection, error)
}

// ImageRepository caches the day's image collection in Redis and falls back
// to the loader on a miss. Singleflight collapses concurrent cache fills.
type ImageRepository struct {
	client *redis.Client
	loader CollectionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewImageRepository(client *redis.Client, loader CollectionLoader, ttl time.Duration) *ImageRepository {
	return &ImageRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ImageRepository) GetCollection(ctx context.Context, date string) (domain.ImageCollection, error) {
	key := imageCollectionKey(date)

	if collection, ok, err := r.fromCache(ctx, key); err == nil && ok {
		return collection, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if collection, ok, err := r.fromCache(ctx, key); err == nil && ok {
			return collection, nil
		}

		collection, err := r.loader.LoadCollection(ctx)
		if err != nil {
			return domain.ImageCollection{}, err
		}

		data, err := json.Marshal(collection)
		if err != nil {
			return domain.ImageCollection{}, err
		}
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return collection, nil
	})
	if err != nil {
		return domain.ImageCollection{}, err
	}
	return result.(domain.ImageCollection), nil
}

func (r *ImageRepository) fromCache(ctx context.Context, key string) (domain.ImageCollection, bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ImageCollection{}, false, nil
	}
	if err != nil {
		return domain.ImageCollection{}, false, err
	}
	var collection domain.ImageCollection
	if err := json.Unmarshal([]byte(data), &collection); err != nil {
		return domain.ImageCollection{}, false, err
	}
	return collection, true, nil
}

func (r *ImageRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
