package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

const customerColumns = `id, name, phone, address, debt_usd, debt_iqd, notes, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for customers.
type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	Create(ctx context.Context, form CustomerForm) (int64, error)
	Update(ctx context.Context, id int64, form CustomerForm) error
	Deactivate(ctx context.Context, id int64) error
	// AdjustDebt applies a signed delta to one currency balance.
	AdjustDebt(ctx context.Context, id int64, currency Currency, delta float64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+whereClause, args...).Scan(&total); err != nil {
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

	query := fmt.Sprintf("SELECT %s FROM customers %s ORDER BY name LIMIT $%d OFFSET $%d", customerColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, form CustomerForm) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, phone, address, debt_usd, debt_iqd, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $5, NOW(), NOW())
		RETURNING id
	`, form.Name, form.Phone, form.Address, form.Notes, form.IsActive).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, form CustomerForm) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET name = $1, phone = $2, address = $3, notes = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`, form.Name, form.Phone, form.Address, form.Notes, form.IsActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) AdjustDebt(ctx context.Context, id int64, currency Currency, delta float64) error {
	column := "debt_usd"
	if currency == CurrencyIQD {
		column = "debt_iqd"
	}
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE customers SET %s = %s + $1, updated_at = NOW() WHERE id = $2`, column, column),
		delta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Address, &c.DebtUSD, &c.DebtIQD,
		&c.Notes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
