package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomatomall/tomatomall/internal/domain"
)

// ErrNegativeAmount rejects stock adjustments below zero.
var ErrNegativeAmount = errors.New("repository: stock amount must be non-negative")

// StockRepository provides helpers for product stockpiles.
type StockRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the stockpile for a product.
func (r *StockRepository) Get(ctx context.Context, productID string) (domain.Stockpile, error) {
	var s domain.Stockpile
	err := r.pool.QueryRow(ctx, `
        SELECT product_id, amount, frozen
        FROM stockpiles
        WHERE product_id = $1
    `, productID).Scan(&s.ProductID, &s.Amount, &s.Frozen)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Stockpile{}, ErrNotFound
		}
		return domain.Stockpile{}, fmt.Errorf("get stockpile: %w", err)
	}
	return s, nil
}

// SetAmount overwrites the sellable amount for a product.
func (r *StockRepository) SetAmount(ctx context.Context, productID string, amount int64) (domain.Stockpile, error) {
	if amount < 0 {
		return domain.Stockpile{}, ErrNegativeAmount
	}

	var s domain.Stockpile
	err := r.pool.QueryRow(ctx, `
        UPDATE stockpiles SET amount = $2
        WHERE product_id = $1
        RETURNING product_id, amount, frozen
    `, productID, amount).Scan(&s.ProductID, &s.Amount, &s.Frozen)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Stockpile{}, ErrNotFound
		}
		return domain.Stockpile{}, fmt.Errorf("set stockpile amount: %w", err)
	}
	return s, nil
}
