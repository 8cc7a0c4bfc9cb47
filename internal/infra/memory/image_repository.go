package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spotai-game-service/internal/domain"
)

// CollectionLoader fetches the image-pair collection from a backing store.
type CollectionLoader interface {
	LoadCollection(ctx context.Context) (domain.ImageCollection, error)
}

// ImageRepository caches the collection with a TTL to avoid repeated loader
// hits.
type ImageRepository struct {
	loader CollectionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.RWMutex
	cached    domain.ImageCollection
	hasCache  bool
	expiresAt time.Time
}

func NewImageRepository(loader CollectionLoader, ttl time.Duration) *ImageRepository {
	return &ImageRepository{loader: loader, ttl: ttl, clock: time.Now}
}

func (r *ImageRepository) GetCollection(ctx context.Context, _ string) (domain.ImageCollection, error) {
	now := r.clock()

	r.mu.RLock()
	if r.hasCache && r.expiresAt.After(now) {
		collection := r.cached
		r.mu.RUnlock()
		return collection, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("collection", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.hasCache && r.expiresAt.After(now) {
			collection := r.cached
			r.mu.RUnlock()
			return collection, nil
		}
		r.mu.RUnlock()

		collection, err := r.loader.LoadCollection(ctx)
		if err != nil {
			return domain.ImageCollection{}, err
		}

		r.mu.Lock()
		r.cached = collection
		r.hasCache = true
		r.expiresAt = now.Add(r.ttl)
		r.mu.Unlock()
		return collection, nil
	})
	if err != nil {
		return domain.ImageCollection{}, err
	}
	return result.(domain.ImageCollection), nil
}

// StaticCollectionLoader serves a fixed collection (useful for tests/demos).
type StaticCollectionLoader struct {
	collection domain.ImageCollection
}

func NewStaticCollectionLoader(collection domain.ImageCollection) *StaticCollectionLoader {
	return &StaticCollectionLoader{collection: collection}
}

func (l *StaticCollectionLoader) LoadCollection(_ context.Context) (domain.ImageCollection, error) {
	if len(l.collection.Pairs) == 0 {
		return domain.ImageCollection{}, domain.ErrNoImagesAvailable
	}
	return l.collection, nil
}
