package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomatomall/tomatomall/internal/domain"
)

// RatingsRepository provides read helpers for per-user ratings. All writes go
// through the rating engine, which owns the aggregate-consistency transaction.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a rating for a specific user/product combination.
func (r *RatingsRepository) Get(ctx context.Context, productID, userID string) (domain.Rating, error) {
	const query = `
        SELECT product_id, user_id, score, created_at, updated_at
        FROM ratings
        WHERE product_id = $1 AND user_id = $2
    `
	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, productID, userID).Scan(
		&rating.ProductID,
		&rating.UserID,
		&rating.Score,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// ListForProduct returns all current ratings for a product, oldest first.
func (r *RatingsRepository) ListForProduct(ctx context.Context, productID string) ([]domain.Rating, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT product_id, user_id, score, created_at, updated_at
        FROM ratings
        WHERE product_id = $1
        ORDER BY created_at, user_id
    `, productID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(
			&rating.ProductID,
			&rating.UserID,
			&rating.Score,
			&rating.CreatedAt,
			&rating.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}
