package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomatomall/tomatomall/internal/domain"
)

// CommentsRepository provides helpers for product comments.
type CommentsRepository struct {
	pool *pgxpool.Pool
}

// CommentUpsertParams captures the payload required to upsert a comment.
type CommentUpsertParams struct {
	ProductID string
	UserID    string
	Detail    string
}

// Upsert inserts or replaces a user's comment on a product and indicates
// whether it was newly created.
func (r *CommentsRepository) Upsert(ctx context.Context, params CommentUpsertParams) (domain.Comment, bool, error) {
	const query = `
        INSERT INTO comments (id, product_id, user_id, detail)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (product_id, user_id)
        DO UPDATE SET detail = EXCLUDED.detail, updated_at = now()
        RETURNING id, product_id, user_id, detail, created_at, updated_at, (xmax = 0) AS inserted
    `

	var comment domain.Comment
	var inserted bool
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), params.ProductID, params.UserID, params.Detail).Scan(
		&comment.ID,
		&comment.ProductID,
		&comment.UserID,
		&comment.Detail,
		&comment.CreatedAt,
		&comment.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.Comment{}, false, fmt.Errorf("upsert comment: %w", err)
	}
	return comment, inserted, nil
}

// ListByProduct returns all comments on a product, newest first.
func (r *CommentsRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, product_id, user_id, detail, created_at, updated_at
        FROM comments
        WHERE product_id = $1
        ORDER BY created_at DESC, id DESC
    `, productID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ProductID, &c.UserID, &c.Detail, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Update replaces the text of a comment, restricted to its author.
func (r *CommentsRepository) Update(ctx context.Context, id, userID, detail string) (domain.Comment, error) {
	var comment domain.Comment
	err := r.pool.QueryRow(ctx, `
        UPDATE comments SET detail = $3, updated_at = now()
        WHERE id = $1 AND user_id = $2
        RETURNING id, product_id, user_id, detail, created_at, updated_at
    `, id, userID, detail).Scan(
		&comment.ID,
		&comment.ProductID,
		&comment.UserID,
		&comment.Detail,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

// Delete removes a user's comment on a product.
func (r *CommentsRepository) Delete(ctx context.Context, productID, userID string) error {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM comments WHERE product_id = $1 AND user_id = $2
    `, productID, userID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
