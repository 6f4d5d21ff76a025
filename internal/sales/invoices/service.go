package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Tishkos/arbatis-pos/internal/activity"
	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, filters ListFilters) ([]Invoice, int, error)
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Printer renders a committed invoice to PDF.
type Printer interface {
	RenderInvoice(ctx context.Context, inv *Invoice) ([]byte, error)
}

// CustomerSource reads customer balances for reopened drafts.
type CustomerSource interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// StockSource reads current stock for reopened draft lines.
type StockSource interface {
	StockLevel(ctx context.Context, kind inventory.ItemKind, itemID int64) (float64, error)
}

// Service coordinates invoice commits, payment edits and reopening
// committed invoices back into draft tabs.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	store     *drafts.Store
	customers CustomerSource
	stock     StockSource
	activity  ActivityPort
	printer   Printer
}

// NewService builds Service. store may be nil when reopening into draft
// tabs is not needed (worker processes).
func NewService(logger *slog.Logger, repo RepositoryPort, store *drafts.Store, cust CustomerSource, stock StockSource, act ActivityPort, printer Printer) *Service {
	return &Service{logger: logger, repo: repo, store: store, customers: cust, stock: stock, activity: act, printer: printer}
}

// FinalizeDraft commits a validated draft. New invoices insert header,
// lines, OUT movements and the customer debt delta in one transaction.
// A draft reopened from an existing invoice updates that invoice in
// place: stock moves by the per-item delta against the committed
// quantities and the old debt effect is reversed before the new one is
// applied.
func (s *Service) FinalizeDraft(ctx context.Context, d *drafts.Draft, actor string) (int64, string, error) {
	inv := invoiceFromDraft(d, actor)

	var invoiceID int64
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if d.EditingInvoiceID != nil {
			id, num, err := s.commitEdit(ctx, tx, d, inv)
			if err != nil {
				return err
			}
			invoiceID, number = id, num
			return nil
		}
		id, num, err := s.commitNew(ctx, tx, inv, actor)
		if err != nil {
			return err
		}
		invoiceID, number = id, num
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	s.record(ctx, actor, "finalize", invoiceID, map[string]any{
		"number": number, "grand_total": inv.GrandTotal, "sale_type": inv.SaleType,
	})
	return invoiceID, number, nil
}

func (s *Service) commitNew(ctx context.Context, tx TxRepository, inv *Invoice, actor string) (int64, string, error) {
	number, err := tx.GenerateNumber(ctx, inv.IssuedAt)
	if err != nil {
		return 0, "", err
	}
	inv.Number = number

	id, err := tx.InsertInvoice(ctx, inv)
	if err != nil {
		return 0, "", fmt.Errorf("insert invoice: %w", err)
	}
	if err := tx.InsertLines(ctx, id, inv.Lines); err != nil {
		return 0, "", fmt.Errorf("insert invoice lines: %w", err)
	}

	stock := tx.Inventory()
	for _, line := range inv.Lines {
		if err := moveStock(ctx, stock, line.ItemKind, line.ItemID, -line.Qty, id, number, actor); err != nil {
			return 0, "", err
		}
	}

	if inv.CustomerID != nil && math.Abs(inv.Outstanding) > 1e-9 {
		if err := tx.AdjustDebt(ctx, *inv.CustomerID, inv.Currency, inv.Outstanding); err != nil {
			return 0, "", fmt.Errorf("adjust customer debt: %w", err)
		}
	}
	return id, number, nil
}

func (s *Service) commitEdit(ctx context.Context, tx TxRepository, d *drafts.Draft, inv *Invoice) (int64, string, error) {
	prev, err := tx.GetForUpdate(ctx, *d.EditingInvoiceID)
	if err != nil {
		return 0, "", err
	}
	inv.ID = prev.ID
	inv.Number = prev.Number

	if err := tx.DeleteLines(ctx, prev.ID); err != nil {
		return 0, "", fmt.Errorf("replace invoice lines: %w", err)
	}
	if err := tx.InsertLines(ctx, prev.ID, inv.Lines); err != nil {
		return 0, "", fmt.Errorf("replace invoice lines: %w", err)
	}
	if err := tx.UpdateInvoice(ctx, inv); err != nil {
		return 0, "", fmt.Errorf("update invoice: %w", err)
	}

	// Stock moves by the net change per item against what the invoice
	// already sold.
	stock := tx.Inventory()
	deltas := lineDeltas(prev.Lines, inv.Lines)
	for key, delta := range deltas {
		if math.Abs(delta) < 1e-9 {
			continue
		}
		if err := moveStock(ctx, stock, key.kind, key.itemID, -delta, prev.ID, prev.Number, inv.Actor); err != nil {
			return 0, "", err
		}
	}

	if err := s.swapDebt(ctx, tx, prev, inv); err != nil {
		return 0, "", err
	}
	return prev.ID, prev.Number, nil
}

// swapDebt reverses the previous invoice's debt effect and applies the
// new one, handling a changed customer or currency.
func (s *Service) swapDebt(ctx context.Context, tx TxRepository, prev, next *Invoice) error {
	if prev.CustomerID != nil && math.Abs(prev.Outstanding) > 1e-9 {
		if err := tx.AdjustDebt(ctx, *prev.CustomerID, prev.Currency, -prev.Outstanding); err != nil {
			return fmt.Errorf("reverse customer debt: %w", err)
		}
	}
	if next.CustomerID != nil && math.Abs(next.Outstanding) > 1e-9 {
		if err := tx.AdjustDebt(ctx, *next.CustomerID, next.Currency, next.Outstanding); err != nil {
			return fmt.Errorf("adjust customer debt: %w", err)
		}
	}
	return nil
}

type itemRef struct {
	kind   inventory.ItemKind
	itemID int64
}

// lineDeltas returns, per item, the quantity change from prev to next.
func lineDeltas(prev, next []Line) map[itemRef]float64 {
	deltas := make(map[itemRef]float64)
	for _, l := range prev {
		deltas[itemRef{l.ItemKind, l.ItemID}] -= l.Qty
	}
	for _, l := range next {
		deltas[itemRef{l.ItemKind, l.ItemID}] += l.Qty
	}
	return deltas
}

// moveStock applies a signed quantity to the item's stock and writes the
// matching ledger row. Negative qty is a sale, positive a reversal.
func moveStock(ctx context.Context, stock inventory.TxRepository, kind inventory.ItemKind, itemID int64, qty float64, invoiceID int64, number, actor string) error {
	if math.Abs(qty) < 1e-9 {
		return nil
	}
	current, err := stock.GetStockForUpdate(ctx, kind, itemID)
	if err != nil {
		return err
	}
	next := current + qty
	if next < -1e-4 {
		return fmt.Errorf("%w: %s %d", inventory.ErrNegativeStock, kind, itemID)
	}
	if math.Abs(next) < 1e-4 {
		next = 0
	}
	if err := stock.SetStock(ctx, kind, itemID, next); err != nil {
		return err
	}
	mtype := inventory.MovementTypeOut
	if qty > 0 {
		mtype = inventory.MovementTypeIn
	}
	_, err = stock.InsertMovement(ctx, inventory.Movement{
		Type:      mtype,
		ItemKind:  kind,
		ItemID:    itemID,
		Qty:       qty,
		RefModule: "sales",
		RefID:     strconv.FormatInt(invoiceID, 10),
		Note:      number,
		Actor:     actor,
		PostedAt:  time.Now().UTC(),
	})
	return err
}

func invoiceFromDraft(d *drafts.Draft, actor string) *Invoice {
	inv := &Invoice{
		SaleType:       d.SaleType,
		CustomerID:     d.CustomerID,
		Series:         d.Series,
		Currency:       d.Currency,
		IssuedAt:       d.IssuedAt,
		Subtotal:       d.Totals.Subtotal,
		DiscountMode:   d.DiscountMode,
		DiscountValue:  d.DiscountValue,
		DiscountAmount: d.Totals.DiscountAmount,
		GrandTotal:     d.Totals.GrandTotal,
		Rounding:       d.Totals.Rounding,
		AmountPaid:     d.Totals.AmountPaid,
		Outstanding:    d.Totals.Outstanding,
		Actor:          actor,
	}
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = time.Now().UTC()
	}
	for _, line := range d.Lines {
		inv.Lines = append(inv.Lines, Line{
			ItemKind: line.ItemKind,
			ItemID:   *line.ItemID,
			Name:     line.Name,
			Qty:      line.Qty,
			Rate:     line.Rate,
			Amount:   line.Amount,
		})
	}
	return inv
}

// Get loads one invoice.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List lists invoices.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	return s.repo.List(ctx, filters)
}

// UpdatePayment changes how much of the invoice has been paid. The debt
// delta is the old paid amount minus the new one; paying more reduces
// the customer's balance.
func (s *Service) UpdatePayment(ctx context.Context, id int64, newPaid float64, actor string) (*Invoice, error) {
	if newPaid < 0 {
		return nil, ErrPaymentBounds
	}
	var updated *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.SaleType == drafts.SaleTypeRetail {
			return ErrPaymentBounds
		}
		// Payments above the grand total settle older debt; the customer
		// balance bounds how far that can go.
		maxPaid := inv.GrandTotal
		if inv.CustomerID != nil && s.customers != nil {
			c, err := s.customers.Get(ctx, *inv.CustomerID)
			if err != nil {
				return fmt.Errorf("load customer %d: %w", *inv.CustomerID, err)
			}
			headroom := c.Debt(inv.Currency) - inv.Outstanding
			if headroom > 0 {
				maxPaid += headroom
			}
		}
		if newPaid > maxPaid+1e-9 {
			newPaid = maxPaid
		}
		delta := inv.AmountPaid - newPaid
		inv.AmountPaid = newPaid
		inv.Outstanding = inv.GrandTotal - newPaid
		if err := tx.UpdatePayment(ctx, id, inv.AmountPaid, inv.Outstanding); err != nil {
			return err
		}
		if inv.CustomerID != nil && math.Abs(delta) > 1e-9 {
			if err := tx.AdjustDebt(ctx, *inv.CustomerID, inv.Currency, delta); err != nil {
				return fmt.Errorf("adjust customer debt: %w", err)
			}
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "update-payment", id, map[string]any{"amount_paid": updated.AmountPaid})
	return updated, nil
}

// ReopenForEdit loads a committed invoice back into a fresh draft tab so
// it can be modified through the normal draft workflow. The committed
// quantities are recorded so available-stock math counts them as still
// available to this draft.
func (s *Service) ReopenForEdit(ctx context.Context, id int64) (*drafts.Draft, error) {
	if s.store == nil {
		return nil, errors.New("invoices: draft store not configured")
	}
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d := draftFromInvoice(inv)

	// Refresh each line's stock snapshot; available-stock math adds the
	// committed quantities back on top.
	if s.stock != nil {
		for i := range d.Lines {
			line := &d.Lines[i]
			level, err := s.stock.StockLevel(ctx, line.ItemKind, *line.ItemID)
			if err != nil {
				return nil, fmt.Errorf("stock level %s %d: %w", line.ItemKind, *line.ItemID, err)
			}
			line.StockSnapshot = level
		}
	}

	// Payment clamping works against the balance as it stood before this
	// invoice, so its own contribution is removed.
	if inv.CustomerID != nil && s.customers != nil {
		c, err := s.customers.Get(ctx, *inv.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("load customer %d: %w", *inv.CustomerID, err)
		}
		d.CustomerDebtBefore = c.Debt(d.Currency) - inv.Outstanding
	}
	d.Recalculate()

	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save reopened draft: %w", err)
	}
	if err := s.store.AddTab(ctx, d.SaleType, d.TabID); err != nil {
		return nil, fmt.Errorf("register reopened tab: %w", err)
	}
	s.record(ctx, "system", "reopen", id, map[string]any{"tab_id": d.TabID})
	return d, nil
}

func draftFromInvoice(inv *Invoice) *drafts.Draft {
	d := &drafts.Draft{
		TabID:         uuid.NewString(),
		SaleType:      inv.SaleType,
		CustomerID:    inv.CustomerID,
		Series:        inv.Series,
		Currency:      inv.Currency,
		IssuedAt:      inv.IssuedAt,
		DiscountMode:  inv.DiscountMode,
		DiscountValue: inv.DiscountValue,
		AmountPaid:    inv.AmountPaid,
		CommittedQty:  make(map[string]float64),
		Version:       1,
	}
	invoiceID := inv.ID
	d.EditingInvoiceID = &invoiceID
	d.EditingCustomerID = inv.CustomerID
	d.EditingCurrency = inv.Currency
	d.EditingOutstanding = inv.Outstanding
	for _, line := range inv.Lines {
		itemID := line.ItemID
		d.Lines = append(d.Lines, drafts.LineItem{
			ID:         uuid.NewString(),
			ItemKind:   line.ItemKind,
			ItemID:     &itemID,
			Name:       line.Name,
			Qty:        line.Qty,
			Rate:       line.Rate,
			Amount:     line.Amount,
			InDatabase: true,
		})
		d.CommittedQty[drafts.ItemKey(line.ItemKind, line.ItemID)] += line.Qty
	}
	return d
}

// Print renders the invoice to PDF.
func (s *Service) Print(ctx context.Context, id int64) ([]byte, error) {
	if s.printer == nil {
		return nil, errors.New("invoices: printer not configured")
	}
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.printer.RenderInvoice(ctx, inv)
}

func (s *Service) record(ctx context.Context, actor, action string, id int64, meta map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   "sales-invoice",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
