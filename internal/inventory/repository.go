package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tishkos/arbatis-pos/internal/platform/db"
)

// TxRepository exposes the operations a movement posting needs inside a
// transaction.
type TxRepository interface {
	// GetStockForUpdate row-locks the catalog row and returns its stock.
	GetStockForUpdate(ctx context.Context, kind ItemKind, itemID int64) (float64, error)
	SetStock(ctx context.Context, kind ItemKind, itemID int64, qty float64) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// Repository provides PostgreSQL backed persistence for stock movements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository wraps an existing transaction so callers in other
// packages can post movements atomically with their own writes.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

func tableFor(kind ItemKind) (string, error) {
	switch kind {
	case ItemKindProduct:
		return "products", nil
	case ItemKindMotorcycle:
		return "motorcycles", nil
	default:
		return "", fmt.Errorf("inventory: unknown item kind %q", kind)
	}
}

func (t *txRepo) GetStockForUpdate(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var stock float64
	err = t.tx.QueryRow(ctx, fmt.Sprintf(`SELECT stock FROM %s WHERE id = $1 FOR UPDATE`, table), itemID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (t *txRepo) SetStock(ctx context.Context, kind ItemKind, itemID int64, qty float64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET stock = $1, updated_at = NOW() WHERE id = $2`, table), qty, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (t *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (mtype, item_kind, item_id, qty, ref_module, ref_id, note, actor, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, m.Type, m.ItemKind, m.ItemID, m.Qty, m.RefModule, m.RefID, m.Note, m.Actor, m.PostedAt).Scan(&id)
	return id, err
}

// List returns movements newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Movement, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.ItemKind != "" {
		conditions = append(conditions, fmt.Sprintf("item_kind = $%d", argPos))
		args = append(args, filters.ItemKind)
		argPos++
	}
	if filters.ItemID != 0 {
		conditions = append(conditions, fmt.Sprintf("item_id = $%d", argPos))
		args = append(args, filters.ItemID)
		argPos++
	}
	if !filters.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("posted_at >= $%d", argPos))
		args = append(args, filters.From)
		argPos++
	}
	if !filters.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("posted_at <= $%d", argPos))
		args = append(args, filters.To)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_movements "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if filters.Page > 1 {
		offset = (filters.Page - 1) * limit
	}

	query := fmt.Sprintf(`
		SELECT id, mtype, item_kind, item_id, qty, ref_module, ref_id, note, actor, posted_at
		FROM stock_movements %s
		ORDER BY posted_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Type, &m.ItemKind, &m.ItemID, &m.Qty, &m.RefModule, &m.RefID, &m.Note, &m.Actor, &m.PostedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// StockLevel reads the current stock column for an item.
func (r *Repository) StockLevel(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var stock float64
	err = r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT stock FROM %s WHERE id = $1`, table), itemID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, err
	}
	return stock, nil
}
