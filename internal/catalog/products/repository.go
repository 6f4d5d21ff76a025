package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("product code already exists")
)

const productColumns = `id, code, name, category_id, retail_price, wholesale_price, stock, barcode, image_path, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for products.
type Repository interface {
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Create(ctx context.Context, form ProductForm) (int64, error)
	Update(ctx context.Context, id int64, form ProductForm) error
	Deactivate(ctx context.Context, id int64) error
	// FindByName matches an exact (case-folded) name first and falls back
	// to a substring match. Only active products participate.
	FindByName(ctx context.Context, name string) (*Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d OR barcode ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argPos))
		args = append(args, *filters.CategoryID)
		argPos++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *filters.IsActive)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filters.Page > 1 {
		offset = (filters.Page - 1) * limit
	}

	query := fmt.Sprintf("SELECT %s FROM products %s ORDER BY name LIMIT $%d OFFSET $%d", productColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, form ProductForm) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category_id, retail_price, wholesale_price, stock, barcode, image_path, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id
	`, form.Code, form.Name, form.CategoryID, form.RetailPrice, form.WholesalePrice, form.Stock, form.Barcode, form.ImagePath, form.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, form ProductForm) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET
			code = $1, name = $2, category_id = $3, retail_price = $4, wholesale_price = $5,
			stock = $6, barcode = $7, image_path = $8, is_active = $9, updated_at = NOW()
		WHERE id = $10
	`, form.Code, form.Name, form.CategoryID, form.RetailPrice, form.WholesalePrice, form.Stock, form.Barcode, form.ImagePath, form.IsActive, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE LOWER(name) = LOWER($1) AND is_active LIMIT 1`, name)
	p, err := scanProduct(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row = r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE $1 AND is_active ORDER BY name LIMIT 1`, "%"+name+"%")
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.RetailPrice, &p.WholesalePrice,
		&p.Stock, &p.Barcode, &p.ImagePath, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
