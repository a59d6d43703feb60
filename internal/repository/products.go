package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomatomall/tomatomall/internal/domain"
)

// ProductsRepository provides persistence helpers for product entities.
type ProductsRepository struct {
	pool *pgxpool.Pool
}

const productColumns = `
    id,
    title,
    price,
    description,
    cover,
    detail,
    category,
    likes,
    rating_count,
    rating_mean,
    created_at,
    updated_at
`

// SpecificationParams is one key/value attribute supplied on create or update.
type SpecificationParams struct {
	Item  string
	Value string
}

// ProductCreateParams bundles the fields required to create a product.
type ProductCreateParams struct {
	Title          string
	Price          float64
	Description    *string
	Cover          *string
	Detail         *string
	Category       *string
	Specifications []SpecificationParams
}

// ProductUpdateParams carries a partial update; nil fields are left unchanged.
// Specifications, when non-nil, replace the existing set wholesale.
type ProductUpdateParams struct {
	Title          *string
	Price          *float64
	Description    *string
	Cover          *string
	Detail         *string
	Category       *string
	Specifications []SpecificationParams
}

// ProductListFilters encapsulates search and pagination options.
type ProductListFilters struct {
	Query    *string
	Category *string
	Limit    int
	Cursor   *ProductCursor
}

// ProductCursor allows stable pagination by created_at/id.
type ProductCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// ProductListResult returns the paginated payload.
type ProductListResult struct {
	Items      []domain.Product
	NextCursor *string
}

// Create inserts a product together with its empty stockpile row and any
// specifications, in one transaction.
func (r *ProductsRepository) Create(ctx context.Context, params ProductCreateParams) (domain.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin create product: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.NewString()
	query := fmt.Sprintf(`
        INSERT INTO products (id, title, price, description, cover, detail, category)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING %s
    `, productColumns)

	row := tx.QueryRow(ctx, query, id, params.Title, params.Price, params.Description, params.Cover, params.Detail, params.Category)
	product, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO stockpiles (product_id, amount, frozen) VALUES ($1, 0, 0)`, id); err != nil {
		return domain.Product{}, fmt.Errorf("create stockpile: %w", err)
	}

	specs, err := replaceSpecifications(ctx, tx, id, params.Specifications)
	if err != nil {
		return domain.Product{}, err
	}
	product.Specifications = specs

	if err := tx.Commit(ctx); err != nil {
		return domain.Product{}, fmt.Errorf("commit create product: %w", err)
	}
	return product, nil
}

// GetByID fetches a product and its specifications.
func (r *ProductsRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	row := r.pool.QueryRow(ctx, query, id)
	product, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, err
	}

	specs, err := r.specificationsFor(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product.Specifications = specs
	return product, nil
}

// Exists reports whether a product id references a stored product.
func (r *ProductsRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return exists, nil
}

// Update applies a partial update and optionally replaces specifications.
func (r *ProductsRepository) Update(ctx context.Context, id string, params ProductUpdateParams) (domain.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin update product: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
        UPDATE products
        SET title = COALESCE($2, title),
            price = COALESCE($3, price),
            description = COALESCE($4, description),
            cover = COALESCE($5, cover),
            detail = COALESCE($6, detail),
            category = COALESCE($7, category),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, productColumns)

	row := tx.QueryRow(ctx, query, id, params.Title, params.Price, params.Description, params.Cover, params.Detail, params.Category)
	product, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, ErrNotFound
		}
		return domain.Product{}, err
	}

	if params.Specifications != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM specifications WHERE product_id = $1`, id); err != nil {
			return domain.Product{}, fmt.Errorf("clear specifications: %w", err)
		}
		specs, err := replaceSpecifications(ctx, tx, id, params.Specifications)
		if err != nil {
			return domain.Product{}, err
		}
		product.Specifications = specs
	} else {
		if err := tx.Commit(ctx); err != nil {
			return domain.Product{}, fmt.Errorf("commit update product: %w", err)
		}
		specs, err := r.specificationsFor(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		product.Specifications = specs
		return product, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Product{}, fmt.Errorf("commit update product: %w", err)
	}
	return product, nil
}

// Delete removes a product; stockpile, specifications, ratings, and comments
// go with it via ON DELETE CASCADE.
func (r *ProductsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Like atomically increments the like counter and returns the new value.
func (r *ProductsRepository) Like(ctx context.Context, id string) (int64, error) {
	var likes int64
	err := r.pool.QueryRow(ctx, `
        UPDATE products SET likes = likes + 1, updated_at = now()
        WHERE id = $1
        RETURNING likes
    `, id).Scan(&likes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("like product: %w", err)
	}
	return likes, nil
}

// List returns products that match the provided filters.
func (r *ProductsRepository) List(ctx context.Context, filters ProductListFilters) (ProductListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + strings.TrimSpace(*filters.Query) + "%"
		p1 := arg(q)
		p2 := arg(q)
		p3 := arg(q)
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR detail ILIKE %s)", p1, p2, p3))
	}
	if filters.Category != nil && strings.TrimSpace(*filters.Category) != "" {
		where = append(where, fmt.Sprintf("category ILIKE %s", arg(strings.TrimSpace(*filters.Category))))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s::uuid)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(productColumns)
	queryBuilder.WriteString(" FROM products")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return ProductListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return ProductListResult{}, err
		}
		items = append(items, product)
	}
	if err := rows.Err(); err != nil {
		return ProductListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		cursor := ProductCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		token, err := encodeCursor(cursor)
		if err != nil {
			return ProductListResult{}, err
		}
		nextCursor = &token
	}

	return ProductListResult{Items: items, NextCursor: nextCursor}, nil
}

func (r *ProductsRepository) specificationsFor(ctx context.Context, productID string) ([]domain.Specification, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, product_id, item, value
        FROM specifications
        WHERE product_id = $1
        ORDER BY item
    `, productID)
	if err != nil {
		return nil, fmt.Errorf("load specifications: %w", err)
	}
	defer rows.Close()

	var specs []domain.Specification
	for rows.Next() {
		var s domain.Specification
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Item, &s.Value); err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, rows.Err()
}

func replaceSpecifications(ctx context.Context, tx pgx.Tx, productID string, params []SpecificationParams) ([]domain.Specification, error) {
	specs := make([]domain.Specification, 0, len(params))
	for _, p := range params {
		s := domain.Specification{
			ID:        uuid.NewString(),
			ProductID: productID,
			Item:      p.Item,
			Value:     p.Value,
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO specifications (id, product_id, item, value)
            VALUES ($1,$2,$3,$4)
        `, s.ID, s.ProductID, s.Item, s.Value); err != nil {
			return nil, fmt.Errorf("insert specification %q: %w", p.Item, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Price,
		&product.Description,
		&product.Cover,
		&product.Detail,
		&product.Category,
		&product.Likes,
		&product.Aggregate.Count,
		&product.Aggregate.Mean,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func encodeCursor(c ProductCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a ProductCursor.
func DecodeCursor(token string) (*ProductCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor ProductCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
