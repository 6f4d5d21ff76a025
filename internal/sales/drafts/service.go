package drafts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tishkos/arbatis-pos/internal/customers"
)

// Finalizer commits a validated draft as a sales invoice. The invoices
// package provides the implementation; keeping it behind a port lets the
// draft workflow stay free of persistence details.
type Finalizer interface {
	FinalizeDraft(ctx context.Context, d *Draft, actor string) (invoiceID int64, number string, err error)
}

// CustomerSource reads customer balances for the debt-before snapshot.
type CustomerSource interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
}

// Service owns the draft tab lifecycle. All state lives in the passed-in
// store; the service itself holds no draft data.
type Service struct {
	logger    *slog.Logger
	store     *Store
	resolver  *Resolver
	customers CustomerSource
	finalizer Finalizer
}

// NewService builds Service.
func NewService(logger *slog.Logger, store *Store, resolver *Resolver, customers CustomerSource, finalizer Finalizer) *Service {
	return &Service{
		logger:    logger,
		store:     store,
		resolver:  resolver,
		customers: customers,
		finalizer: finalizer,
	}
}

// OpenTab creates an empty draft, registers its tab and persists the
// first snapshot.
func (s *Service) OpenTab(ctx context.Context, saleType SaleType) (*Draft, error) {
	if !saleType.Valid() {
		return nil, ErrInvalidSaleType
	}
	d := &Draft{
		TabID:        uuid.NewString(),
		SaleType:     saleType,
		Currency:     customers.CurrencyUSD,
		IssuedAt:     time.Now().UTC(),
		DiscountMode: DiscountModePercent,
		Version:      1,
	}
	d.Recalculate()

	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	if err := s.store.AddTab(ctx, saleType, d.TabID); err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return d, nil
}

// ListTabs returns the open tab ids for the sale type.
func (s *Service) ListTabs(ctx context.Context, saleType SaleType) ([]string, error) {
	if !saleType.Valid() {
		return nil, ErrInvalidSaleType
	}
	return s.store.ListTabs(ctx, saleType)
}

// Get loads the draft for the tab.
func (s *Service) Get(ctx context.Context, tabID string) (*Draft, error) {
	return s.store.Load(ctx, tabID)
}

// SaveResult reports what Save changed beyond the caller's input.
type SaveResult struct {
	Draft          *Draft   `json:"draft"`
	PaymentClamped bool     `json:"payment_clamped"`
	ClampedLines   []string `json:"clamped_lines,omitempty"`
}

// Save applies the submitted form onto the stored draft, resolves any
// lines whose typed names changed, recomputes totals with stock and
// payment clamping, and persists the next version.
func (s *Service) Save(ctx context.Context, tabID string, form DraftForm) (*SaveResult, error) {
	d, err := s.store.Load(ctx, tabID)
	if err != nil {
		return nil, err
	}

	changedNames := s.applyForm(d, form)

	if err := s.refreshDebtBefore(ctx, d); err != nil {
		return nil, err
	}
	for _, lineID := range changedNames {
		if err := s.resolver.ResolveLine(ctx, d, lineID); err != nil {
			return nil, fmt.Errorf("resolve line %s: %w", lineID, err)
		}
	}

	clampedLines := d.ClampQuantities()
	paymentClamped := d.Recalculate()

	d.Version++
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}
	return &SaveResult{Draft: d, PaymentClamped: paymentClamped, ClampedLines: clampedLines}, nil
}

// applyForm copies the submitted fields onto the draft and returns the
// ids of lines whose typed name changed and needs re-resolution.
func (s *Service) applyForm(d *Draft, form DraftForm) []string {
	d.CustomerID = form.CustomerID
	d.Series = form.Series
	if form.Currency.Valid() {
		d.Currency = form.Currency
	}
	if !form.IssuedAt.IsZero() {
		d.IssuedAt = form.IssuedAt
	}
	if form.DiscountMode.Valid() {
		d.DiscountMode = form.DiscountMode
	}
	d.DiscountValue = form.DiscountValue
	if d.SaleType == SaleTypeWholesale {
		d.AmountPaid = form.AmountPaid
	}

	var changed []string
	next := make([]LineItem, 0, len(form.Lines))
	for _, lf := range form.Lines {
		prev := d.Line(lf.ID)
		line := LineItem{
			ID:       lf.ID,
			ItemKind: lf.ItemKind,
			Name:     lf.Name,
			Qty:      lf.Qty,
			Rate:     lf.Rate,
		}
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		if prev != nil {
			line.ItemID = prev.ItemID
			line.StockSnapshot = prev.StockSnapshot
			line.InDatabase = prev.InDatabase
			line.NotFound = prev.NotFound
			line.ResolveToken = prev.ResolveToken
			line.RateEdited = prev.RateEdited || (lf.Rate != prev.Rate && lf.Rate != 0)
			if lf.Name != prev.Name {
				line.InDatabase = false
				line.NotFound = false
				changed = append(changed, line.ID)
			}
		} else {
			// A rate typed on a brand new line counts as user-edited.
			line.RateEdited = lf.Rate != 0
			if line.Name != "" {
				changed = append(changed, line.ID)
			}
		}
		next = append(next, line)
	}

	// Drop token state for lines the form removed.
	for i := range d.Lines {
		old := &d.Lines[i]
		keep := false
		for j := range next {
			if next[j].ID == old.ID {
				keep = true
				break
			}
		}
		if !keep {
			s.resolver.Forget(old.ID)
		}
	}
	d.Lines = next
	return changed
}

// refreshDebtBefore re-reads the customer balance whenever the customer
// or currency selection changed. For a reopened invoice the balance still
// carries that invoice's own outstanding, so it is removed before the
// payment ceiling is computed.
func (s *Service) refreshDebtBefore(ctx context.Context, d *Draft) error {
	if d.CustomerID == nil {
		d.CustomerDebtBefore = 0
		return nil
	}
	c, err := s.customers.Get(ctx, *d.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer %d: %w", *d.CustomerID, err)
	}
	debt := c.Debt(d.Currency)
	if d.EditingInvoiceID != nil && d.EditingCustomerID != nil &&
		*d.CustomerID == *d.EditingCustomerID && d.Currency == d.EditingCurrency {
		debt -= d.EditingOutstanding
	}
	d.CustomerDebtBefore = debt
	return nil
}

// ResolveLine re-runs catalog matching for one line and persists the
// updated snapshot.
func (s *Service) ResolveLine(ctx context.Context, tabID, lineID string) (*Draft, error) {
	d, err := s.store.Load(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.ResolveLine(ctx, d, lineID); err != nil {
		return nil, err
	}
	d.ClampQuantities()
	d.Recalculate()
	d.Version++
	if err := s.store.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CloseTab discards the draft and its tab registration.
func (s *Service) CloseTab(ctx context.Context, tabID string) error {
	d, err := s.store.Load(ctx, tabID)
	if err != nil {
		return err
	}
	for i := range d.Lines {
		s.resolver.Forget(d.Lines[i].ID)
	}
	return s.store.Delete(ctx, tabID, d.SaleType)
}

// Finalize validates the draft and commits it as an invoice. The snapshot
// and tab registration are removed only after the commit succeeds.
func (s *Service) Finalize(ctx context.Context, tabID, actor string) (int64, string, error) {
	d, err := s.store.Load(ctx, tabID)
	if err != nil {
		return 0, "", err
	}
	if err := s.validateForFinalize(d); err != nil {
		return 0, "", err
	}

	invoiceID, number, err := s.finalizer.FinalizeDraft(ctx, d, actor)
	if err != nil {
		return 0, "", fmt.Errorf("finalize draft %s: %w", tabID, err)
	}

	for i := range d.Lines {
		s.resolver.Forget(d.Lines[i].ID)
	}
	if err := s.store.Delete(ctx, tabID, d.SaleType); err != nil {
		s.logger.Error("drop finalized draft failed",
			slog.String("tab_id", tabID), slog.Any("error", err))
	}
	return invoiceID, number, nil
}

func (s *Service) validateForFinalize(d *Draft) error {
	if d.SaleType == SaleTypeWholesale && d.CustomerID == nil {
		return ErrCustomerRequired
	}
	if len(d.Lines) == 0 {
		return ErrEmptyLines
	}
	d.Recalculate()
	for i := range d.Lines {
		line := &d.Lines[i]
		if !line.InDatabase || line.ItemID == nil {
			return fmt.Errorf("%w: %s", ErrUnresolvedLine, line.Name)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("%w: %s", ErrUnresolvedLine, line.Name)
		}
		if line.Qty > d.AvailableStock(line.ID) {
			return fmt.Errorf("%w: %s", ErrStockExceeded, line.Name)
		}
	}
	if d.AmountPaid < 0 || d.AmountPaid > d.MaxPayment() {
		return ErrPaymentBounds
	}
	return nil
}
