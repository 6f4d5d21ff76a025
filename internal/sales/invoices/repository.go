package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
	"github.com/Tishkos/arbatis-pos/internal/platform/db"
)

const invoiceColumns = `id, number, sale_type, customer_id, series, currency, issued_at,
	subtotal, discount_mode, discount_value, discount_amount, grand_total, rounding,
	amount_paid, outstanding, actor, created_at, updated_at`

// TxRepository exposes the writes a finalize or payment edit performs
// inside one transaction. Inventory movements and customer debt updates
// ride the same transaction so a failed commit leaves no partial state.
type TxRepository interface {
	// GenerateNumber reserves the next invoice number for the month.
	GenerateNumber(ctx context.Context, issuedAt time.Time) (string, error)
	InsertInvoice(ctx context.Context, inv *Invoice) (int64, error)
	InsertLines(ctx context.Context, invoiceID int64, lines []Line) error
	GetForUpdate(ctx context.Context, id int64) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteLines(ctx context.Context, invoiceID int64) error
	UpdatePayment(ctx context.Context, id int64, amountPaid, outstanding float64) error
	AdjustDebt(ctx context.Context, customerID int64, currency customers.Currency, delta float64) error
	// Inventory returns a stock ledger view bound to this transaction.
	Inventory() inventory.TxRepository
}

// Repository provides PostgreSQL backed persistence for invoices.
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

func (t *txRepo) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(t.tx)
}

func (t *txRepo) GenerateNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	key := "INV-" + issuedAt.Format("0601")
	var seq int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO document_sequences (key, value)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET value = document_sequences.value + 1
		RETURNING value
	`, key).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("generate invoice number: %w", err)
	}
	return fmt.Sprintf("%s-%04d", key, seq), nil
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv *Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales_invoices (number, sale_type, customer_id, series, currency, issued_at,
			subtotal, discount_mode, discount_value, discount_amount, grand_total, rounding,
			amount_paid, outstanding, actor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id
	`, inv.Number, inv.SaleType, inv.CustomerID, inv.Series, inv.Currency, inv.IssuedAt,
		inv.Subtotal, inv.DiscountMode, inv.DiscountValue, inv.DiscountAmount, inv.GrandTotal,
		inv.Rounding, inv.AmountPaid, inv.Outstanding, inv.Actor).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLines(ctx context.Context, invoiceID int64, lines []Line) error {
	for _, line := range lines {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO sales_invoice_lines (invoice_id, item_kind, item_id, name, qty, rate, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, invoiceID, line.ItemKind, line.ItemID, line.Name, line.Qty, line.Rate, line.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices WHERE id = $1 FOR UPDATE`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = scanLines(ctx, t.tx, id)
	return inv, err
}

func (t *txRepo) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE sales_invoices SET customer_id = $1, series = $2, currency = $3, issued_at = $4,
			subtotal = $5, discount_mode = $6, discount_value = $7, discount_amount = $8,
			grand_total = $9, rounding = $10, amount_paid = $11, outstanding = $12, updated_at = NOW()
		WHERE id = $13
	`, inv.CustomerID, inv.Series, inv.Currency, inv.IssuedAt,
		inv.Subtotal, inv.DiscountMode, inv.DiscountValue, inv.DiscountAmount,
		inv.GrandTotal, inv.Rounding, inv.AmountPaid, inv.Outstanding, inv.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteLines(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sales_invoice_lines WHERE invoice_id = $1`, invoiceID)
	return err
}

func (t *txRepo) UpdatePayment(ctx context.Context, id int64, amountPaid, outstanding float64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE sales_invoices SET amount_paid = $1, outstanding = $2, updated_at = NOW() WHERE id = $3
	`, amountPaid, outstanding, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) AdjustDebt(ctx context.Context, customerID int64, currency customers.Currency, delta float64) error {
	column := "debt_usd"
	if currency == customers.CurrencyIQD {
		column = "debt_iqd"
	}
	tag, err := t.tx.Exec(ctx,
		fmt.Sprintf(`UPDATE customers SET %s = %s + $1, updated_at = NOW() WHERE id = $2`, column, column),
		delta, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return customers.ErrNotFound
	}
	return nil
}

// Get loads one invoice with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM sales_invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = scanLines(ctx, r.pool, id)
	return inv, err
}

// List returns invoices newest first, without lines.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.SaleType != "" {
		conditions = append(conditions, fmt.Sprintf("sale_type = $%d", argPos))
		args = append(args, filters.SaleType)
		argPos++
	}
	if filters.CustomerID != 0 {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, filters.CustomerID)
		argPos++
	}
	if !filters.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("issued_at >= $%d", argPos))
		args = append(args, filters.From)
		argPos++
	}
	if !filters.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("issued_at <= $%d", argPos))
		args = append(args, filters.To)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales_invoices "+whereClause, args...).Scan(&total); err != nil {
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

	query := fmt.Sprintf(`SELECT %s FROM sales_invoices %s ORDER BY issued_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanLines(ctx context.Context, q queryer, invoiceID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, item_kind, item_id, name, qty, rate, amount
		FROM sales_invoice_lines WHERE invoice_id = $1 ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ItemKind, &l.ItemID, &l.Name, &l.Qty, &l.Rate, &l.Amount); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.SaleType, &inv.CustomerID, &inv.Series, &inv.Currency, &inv.IssuedAt,
		&inv.Subtotal, &inv.DiscountMode, &inv.DiscountValue, &inv.DiscountAmount, &inv.GrandTotal,
		&inv.Rounding, &inv.AmountPaid, &inv.Outstanding, &inv.Actor, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}
