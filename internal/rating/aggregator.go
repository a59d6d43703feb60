// Package rating maintains the per-product (count, mean) rating aggregate as
// individual user ratings are inserted or revised. The aggregate is a
// materialized view over the ratings table: it is carried forward with O(1)
// incremental updates instead of being recomputed, and every update runs in a
// transaction that locks the product row so concurrent submissions for the
// same product serialize while other products stay unaffected.
package rating

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomatomall/tomatomall/internal/domain"
)

var (
	// ErrProductNotFound indicates the rated product does not exist.
	ErrProductNotFound = errors.New("rating: product not found")
	// ErrScoreOutOfRange rejects scores outside [domain.MinScore, domain.MaxScore].
	ErrScoreOutOfRange = errors.New("rating: score out of range")
	// ErrNotAuthenticated indicates no resolved user identity was supplied.
	ErrNotAuthenticated = errors.New("rating: user not authenticated")
	// ErrStorageConflict is surfaced when the transaction keeps failing on
	// serialization or deadlock errors after the retry budget is spent.
	ErrStorageConflict = errors.New("rating: storage conflict")
)

const defaultRetryLimit = 3

// Result reports the outcome of a rating submission.
type Result struct {
	IsNew bool
	Count int64
	Mean  float64
}

// Aggregator owns all writes to ratings and to the product aggregate columns.
type Aggregator struct {
	pool       *pgxpool.Pool
	logger     *log.Logger
	retryLimit int
}

// New constructs an Aggregator. retryLimit bounds transparent retries of
// conflicting transactions; values below 1 fall back to the default.
func New(pool *pgxpool.Pool, logger *log.Logger, retryLimit int) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	if retryLimit < 1 {
		retryLimit = defaultRetryLimit
	}
	return &Aggregator{pool: pool, logger: logger, retryLimit: retryLimit}
}

// Submit registers or revises userID's score for productID and co-updates the
// product aggregate in the same transaction. A repeat submission by the same
// user replaces the previous score without changing the count.
func (a *Aggregator) Submit(ctx context.Context, productID, userID string, score int) (Result, error) {
	if userID == "" {
		return Result{}, ErrNotAuthenticated
	}
	if score < domain.MinScore || score > domain.MaxScore {
		return Result{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrScoreOutOfRange, score, domain.MinScore, domain.MaxScore)
	}
	if uuid.Validate(productID) != nil {
		return Result{}, ErrProductNotFound
	}

	var lastErr error
	for attempt := 1; attempt <= a.retryLimit; attempt++ {
		result, err := a.submitOnce(ctx, productID, userID, score)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return Result{}, err
		}
		lastErr = err
		a.logger.Printf("rating: conflict on product %s (attempt %d/%d): %v", productID, attempt, a.retryLimit, err)
	}
	return Result{}, fmt.Errorf("%w: %v", ErrStorageConflict, lastErr)
}

func (a *Aggregator) submitOnce(ctx context.Context, productID, userID string, score int) (Result, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin rating tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock is the per-product serialization point: it also proves the
	// product exists before any rating state is touched.
	var agg domain.RatingAggregate
	err = tx.QueryRow(ctx, `
        SELECT rating_count, rating_mean
        FROM products
        WHERE id = $1
        FOR UPDATE
    `, productID).Scan(&agg.Count, &agg.Mean)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrProductNotFound
		}
		return Result{}, fmt.Errorf("lock product row: %w", err)
	}

	var oldScore int
	err = tx.QueryRow(ctx, `
        SELECT score FROM ratings
        WHERE product_id = $1 AND user_id = $2
    `, productID, userID).Scan(&oldScore)

	var result Result
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		agg = applyFirst(agg, score)
		if _, err := tx.Exec(ctx, `
            INSERT INTO ratings (product_id, user_id, score)
            VALUES ($1,$2,$3)
        `, productID, userID, score); err != nil {
			return Result{}, fmt.Errorf("insert rating: %w", err)
		}
		result = Result{IsNew: true, Count: agg.Count, Mean: agg.Mean}
	case err != nil:
		return Result{}, fmt.Errorf("read existing rating: %w", err)
	default:
		agg = applyRevision(agg, oldScore, score)
		if _, err := tx.Exec(ctx, `
            UPDATE ratings SET score = $3, updated_at = now()
            WHERE product_id = $1 AND user_id = $2
        `, productID, userID, score); err != nil {
			return Result{}, fmt.Errorf("update rating: %w", err)
		}
		result = Result{IsNew: false, Count: agg.Count, Mean: agg.Mean}
	}

	if _, err := tx.Exec(ctx, `
        UPDATE products SET rating_count = $2, rating_mean = $3, updated_at = now()
        WHERE id = $1
    `, productID, agg.Count, agg.Mean); err != nil {
		return Result{}, fmt.Errorf("write aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit rating tx: %w", err)
	}
	return result, nil
}

// applyFirst folds a first-time score into the aggregate. The zero-count guard
// keeps an undefined mean from contaminating the sum.
func applyFirst(agg domain.RatingAggregate, score int) domain.RatingAggregate {
	sum := agg.Mean * float64(agg.Count)
	if agg.Count == 0 {
		sum = 0
	}
	newCount := agg.Count + 1
	return domain.RatingAggregate{
		Count: newCount,
		Mean:  (sum + float64(score)) / float64(newCount),
	}
}

// applyRevision swaps oldScore for newScore in the aggregate. The count never
// changes here: an existing rating implies Count >= 1, so the division is safe.
func applyRevision(agg domain.RatingAggregate, oldScore, newScore int) domain.RatingAggregate {
	sum := agg.Mean*float64(agg.Count) - float64(oldScore) + float64(newScore)
	return domain.RatingAggregate{
		Count: agg.Count,
		Mean:  sum / float64(agg.Count),
	}
}

// retryable reports whether the transaction failed on a condition that a fresh
// attempt can resolve (serialization failure or deadlock).
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
