package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"spotai-game-service/internal/domain"
)

// ImageLoader loads the image-pair collection from Postgres JSONB rows.
type ImageLoader struct {
	pool *pgxpool.Pool
}

func NewImageLoader(pool *pgxpool.Pool) *ImageLoader {
	return &ImageLoader{pool: pool}
}

func (l *ImageLoader) LoadCollection(ctx context.Context) (domain.ImageCollection, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, category, data FROM image_pairs`)
	if err != nil {
		return domain.ImageCollection{}, fmt.Errorf("load image pairs: %w", err)
	}
	defer rows.Close()

	collection := domain.ImageCollection{Pairs: make(map[string][]domain.ImagePair)}
	for rows.Next() {
		var (
			id       string
			category string
			raw      []byte
		)
		if err := rows.Scan(&id, &category, &raw); err != nil {
			return domain.ImageCollection{}, fmt.Errorf("scan image pair: %w", err)
		}
		var pair domain.ImagePair
		if err := json.Unmarshal(raw, &pair); err != nil {
			return domain.ImageCollection{}, fmt.Errorf("unmarshal image pair %s: %w", id, err)
		}
		pair.ID = id
		pair.Category = category
		collection.Pairs[category] = append(collection.Pairs[category], pair)
	}
	if err := rows.Err(); err != nil {
		return domain.ImageCollection{}, fmt.Errorf("iterate image pairs: %w", err)
	}
	return collection, nil
}
