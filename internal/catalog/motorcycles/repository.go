package motorcycles

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
	ErrDuplicate = errors.New("chassis number already exists")
)

const motorcycleColumns = `id, name, model_year, color, chassis_number, engine_number, retail_price, wholesale_price, stock, image_path, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for motorcycles.
type Repository interface {
	Get(ctx context.Context, id int64) (*Motorcycle, error)
	List(ctx context.Context, filters ListFilters) ([]Motorcycle, int, error)
	Create(ctx context.Context, form MotorcycleForm) (int64, error)
	Update(ctx context.Context, id int64, form MotorcycleForm) error
	Deactivate(ctx context.Context, id int64) error
	FindByName(ctx context.Context, name string) (*Motorcycle, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Motorcycle, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+motorcycleColumns+` FROM motorcycles WHERE id = $1`, id)
	return scanMotorcycle(row)
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Motorcycle, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR chassis_number ILIKE $%d OR engine_number ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.ModelYear != nil {
		conditions = append(conditions, fmt.Sprintf("model_year = $%d", argPos))
		args = append(args, *filters.ModelYear)
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM motorcycles "+whereClause, args...).Scan(&total); err != nil {
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

	query := fmt.Sprintf("SELECT %s FROM motorcycles %s ORDER BY name LIMIT $%d OFFSET $%d", motorcycleColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Motorcycle
	for rows.Next() {
		m, err := scanMotorcycle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, form MotorcycleForm) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO motorcycles (name, model_year, color, chassis_number, engine_number, retail_price, wholesale_price, stock, image_path, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`, form.Name, form.ModelYear, form.Color, form.ChassisNumber, form.EngineNumber, form.RetailPrice, form.WholesalePrice, form.Stock, form.ImagePath, form.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, form MotorcycleForm) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE motorcycles SET
			name = $1, model_year = $2, color = $3, chassis_number = $4, engine_number = $5,
			retail_price = $6, wholesale_price = $7, stock = $8, image_path = $9, is_active = $10, updated_at = NOW()
		WHERE id = $11
	`, form.Name, form.ModelYear, form.Color, form.ChassisNumber, form.EngineNumber, form.RetailPrice, form.WholesalePrice, form.Stock, form.ImagePath, form.IsActive, id)
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
	tag, err := r.pool.Exec(ctx, `UPDATE motorcycles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*Motorcycle, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+motorcycleColumns+` FROM motorcycles WHERE LOWER(name) = LOWER($1) AND is_active LIMIT 1`, name)
	m, err := scanMotorcycle(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row = r.pool.QueryRow(ctx,
		`SELECT `+motorcycleColumns+` FROM motorcycles WHERE name ILIKE $1 AND is_active ORDER BY name LIMIT 1`, "%"+name+"%")
	return scanMotorcycle(row)
}

func scanMotorcycle(row pgx.Row) (*Motorcycle, error) {
	var m Motorcycle
	err := row.Scan(
		&m.ID, &m.Name, &m.ModelYear, &m.Color, &m.ChassisNumber, &m.EngineNumber,
		&m.RetailPrice, &m.WholesalePrice, &m.Stock, &m.ImagePath, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
