package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
)

type memoryInvoiceRepo struct {
	invoices  map[int64]*Invoice
	stock     map[string]float64
	movements []inventory.Movement
	debts     map[int64]map[customers.Currency]float64
	sequences map[string]int64
	nextID    int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		invoices:  make(map[int64]*Invoice),
		stock:     make(map[string]float64),
		debts:     make(map[int64]map[customers.Currency]float64),
		sequences: make(map[string]int64),
	}
}

func (r *memoryInvoiceRepo) stockKey(kind inventory.ItemKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (r *memoryInvoiceRepo) debt(customerID int64, currency customers.Currency) float64 {
	if m, ok := r.debts[customerID]; ok {
		return m[currency]
	}
	return 0
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryInvoiceTx{repo: r})
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	cp.Lines = append([]Line(nil), inv.Lines...)
	return &cp, nil
}

func (r *memoryInvoiceRepo) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

type memoryInvoiceTx struct {
	repo *memoryInvoiceRepo
}

func (t *memoryInvoiceTx) GenerateNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	key := "INV-" + issuedAt.Format("0601")
	t.repo.sequences[key]++
	return fmt.Sprintf("%s-%04d", key, t.repo.sequences[key]), nil
}

func (t *memoryInvoiceTx) InsertInvoice(ctx context.Context, inv *Invoice) (int64, error) {
	t.repo.nextID++
	cp := *inv
	cp.ID = t.repo.nextID
	cp.Lines = nil
	t.repo.invoices[cp.ID] = &cp
	return cp.ID, nil
}

func (t *memoryInvoiceTx) InsertLines(ctx context.Context, invoiceID int64, lines []Line) error {
	inv, ok := t.repo.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	for _, line := range lines {
		line.InvoiceID = invoiceID
		inv.Lines = append(inv.Lines, line)
	}
	return nil
}

func (t *memoryInvoiceTx) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryInvoiceTx) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	stored, ok := t.repo.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	lines := stored.Lines
	cp := *inv
	cp.Lines = lines
	t.repo.invoices[inv.ID] = &cp
	return nil
}

func (t *memoryInvoiceTx) DeleteLines(ctx context.Context, invoiceID int64) error {
	inv, ok := t.repo.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	inv.Lines = nil
	return nil
}

func (t *memoryInvoiceTx) UpdatePayment(ctx context.Context, id int64, amountPaid, outstanding float64) error {
	inv, ok := t.repo.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.AmountPaid = amountPaid
	inv.Outstanding = outstanding
	return nil
}

func (t *memoryInvoiceTx) AdjustDebt(ctx context.Context, customerID int64, currency customers.Currency, delta float64) error {
	if _, ok := t.repo.debts[customerID]; !ok {
		t.repo.debts[customerID] = make(map[customers.Currency]float64)
	}
	t.repo.debts[customerID][currency] += delta
	return nil
}

func (t *memoryInvoiceTx) Inventory() inventory.TxRepository {
	return &memoryStockTx{repo: t.repo}
}

type memoryStockTx struct {
	repo *memoryInvoiceRepo
}

func (t *memoryStockTx) GetStockForUpdate(ctx context.Context, kind inventory.ItemKind, itemID int64) (float64, error) {
	key := t.repo.stockKey(kind, itemID)
	if _, ok := t.repo.stock[key]; !ok {
		return 0, inventory.ErrItemNotFound
	}
	return t.repo.stock[key], nil
}

func (t *memoryStockTx) SetStock(ctx context.Context, kind inventory.ItemKind, itemID int64, qty float64) error {
	t.repo.stock[t.repo.stockKey(kind, itemID)] = qty
	return nil
}

func (t *memoryStockTx) InsertMovement(ctx context.Context, m inventory.Movement) (int64, error) {
	t.repo.movements = append(t.repo.movements, m)
	return int64(len(t.repo.movements)), nil
}

type stubCustomers struct {
	repo *memoryInvoiceRepo
}

func (s *stubCustomers) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	return &customers.Customer{
		ID:      id,
		DebtUSD: s.repo.debt(id, customers.CurrencyUSD),
		DebtIQD: s.repo.debt(id, customers.CurrencyIQD),
	}, nil
}

type stubStock struct {
	repo *memoryInvoiceRepo
}

func (s *stubStock) StockLevel(ctx context.Context, kind inventory.ItemKind, itemID int64) (float64, error) {
	return s.repo.stock[s.repo.stockKey(kind, itemID)], nil
}

func newTestService(repo *memoryInvoiceRepo) *Service {
	return NewService(slog.Default(), repo, nil, &stubCustomers{repo: repo}, &stubStock{repo: repo}, nil, nil)
}

func retailDraft() *drafts.Draft {
	itemID := int64(7)
	d := &drafts.Draft{
		TabID:    "tab-1",
		SaleType: drafts.SaleTypeRetail,
		Currency: customers.CurrencyUSD,
		IssuedAt: time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		Lines: []drafts.LineItem{
			{ID: "l1", ItemKind: inventory.ItemKindProduct, ItemID: &itemID, Name: "Engine Oil", Qty: 2, Rate: 100, InDatabase: true, StockSnapshot: 10},
		},
	}
	d.Recalculate()
	return d
}

func TestFinalizeDraftCommitsInvoice(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	id, number, err := svc.FinalizeDraft(context.Background(), retailDraft(), "sara")
	require.NoError(t, err)
	require.Equal(t, "INV-2608-0001", number)

	inv, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 200.0, inv.GrandTotal)
	require.Equal(t, 200.0, inv.AmountPaid)
	require.Equal(t, 0.0, inv.Outstanding)
	require.Len(t, inv.Lines, 1)

	// Stock moved out and the ledger recorded the sale.
	require.Equal(t, 8.0, repo.stock["product:7"])
	require.Len(t, repo.movements, 1)
	require.Equal(t, inventory.MovementTypeOut, repo.movements[0].Type)
	require.Equal(t, -2.0, repo.movements[0].Qty)
}

func TestFinalizeDraftSequentialNumbers(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	_, first, err := svc.FinalizeDraft(context.Background(), retailDraft(), "sara")
	require.NoError(t, err)
	_, second, err := svc.FinalizeDraft(context.Background(), retailDraft(), "sara")
	require.NoError(t, err)

	require.Equal(t, "INV-2608-0001", first)
	require.Equal(t, "INV-2608-0002", second)
}

func TestFinalizeDraftWholesaleAdjustsDebt(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	customerID := int64(42)
	d := retailDraft()
	d.SaleType = drafts.SaleTypeWholesale
	d.CustomerID = &customerID
	d.AmountPaid = 50
	d.Recalculate()

	_, _, err := svc.FinalizeDraft(context.Background(), d, "sara")
	require.NoError(t, err)

	// 200 grand, 50 paid: the customer owes 150 more.
	require.Equal(t, 150.0, repo.debt(customerID, customers.CurrencyUSD))
}

func TestFinalizeDraftRejectsNegativeStock(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 1
	svc := newTestService(repo)

	_, _, err := svc.FinalizeDraft(context.Background(), retailDraft(), "sara")
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
}

func TestFinalizeEditedDraftMovesStockByDelta(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	id, _, err := svc.FinalizeDraft(context.Background(), retailDraft(), "sara")
	require.NoError(t, err)
	require.Equal(t, 8.0, repo.stock["product:7"])

	// Reopen semantics: same item, quantity 2 -> 5.
	d := retailDraft()
	d.EditingInvoiceID = &id
	d.Lines[0].Qty = 5
	d.CommittedQty = map[string]float64{"product:7": 2}
	d.Recalculate()

	editedID, number, err := svc.FinalizeDraft(context.Background(), d, "sara")
	require.NoError(t, err)
	require.Equal(t, id, editedID)
	require.Equal(t, "INV-2608-0001", number)

	require.Equal(t, 5.0, repo.stock["product:7"])
	inv, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 500.0, inv.GrandTotal)
	require.Len(t, inv.Lines, 1)
	require.Equal(t, 5.0, inv.Lines[0].Qty)
}

func TestFinalizeEditedDraftSwapsDebt(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	customerID := int64(42)
	d := retailDraft()
	d.SaleType = drafts.SaleTypeWholesale
	d.CustomerID = &customerID
	d.AmountPaid = 0
	d.Recalculate()

	id, _, err := svc.FinalizeDraft(context.Background(), d, "sara")
	require.NoError(t, err)
	require.Equal(t, 200.0, repo.debt(customerID, customers.CurrencyUSD))

	edited := retailDraft()
	edited.SaleType = drafts.SaleTypeWholesale
	edited.CustomerID = &customerID
	edited.AmountPaid = 150
	edited.EditingInvoiceID = &id
	edited.CommittedQty = map[string]float64{"product:7": 2}
	edited.CustomerDebtBefore = 0
	edited.Recalculate()

	_, _, err = svc.FinalizeDraft(context.Background(), edited, "sara")
	require.NoError(t, err)

	// Old effect (+200) reversed, new outstanding is 50.
	require.Equal(t, 50.0, repo.debt(customerID, customers.CurrencyUSD))
}

func TestUpdatePaymentAdjustsDebt(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	customerID := int64(42)
	d := retailDraft()
	d.SaleType = drafts.SaleTypeWholesale
	d.CustomerID = &customerID
	d.AmountPaid = 50
	d.Recalculate()

	id, _, err := svc.FinalizeDraft(context.Background(), d, "sara")
	require.NoError(t, err)
	require.Equal(t, 150.0, repo.debt(customerID, customers.CurrencyUSD))

	inv, err := svc.UpdatePayment(context.Background(), id, 120, "sara")
	require.NoError(t, err)
	require.Equal(t, 120.0, inv.AmountPaid)
	require.Equal(t, 80.0, inv.Outstanding)
	require.Equal(t, 80.0, repo.debt(customerID, customers.CurrencyUSD))
}

func TestUpdatePaymentClampsToDebt(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	customerID := int64(42)
	d := retailDraft()
	d.SaleType = drafts.SaleTypeWholesale
	d.CustomerID = &customerID
	d.AmountPaid = 0
	d.Recalculate()

	id, _, err := svc.FinalizeDraft(context.Background(), d, "sara")
	require.NoError(t, err)

	// Grand 200, debt 200, no older debt: paying 900 clamps to 200.
	inv, err := svc.UpdatePayment(context.Background(), id, 900, "sara")
	require.NoError(t, err)
	require.Equal(t, 200.0, inv.AmountPaid)
	require.Equal(t, 0.0, inv.Outstanding)
	require.Equal(t, 0.0, repo.debt(customerID, customers.CurrencyUSD))
}

func TestUpdatePaymentRejectsRetail(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc := newTestService(repo)

	id, _, err := svc.FinalizeDraft(context.Background(), retailDraft(), "sara")
	require.NoError(t, err)

	_, err = svc.UpdatePayment(context.Background(), id, 100, "sara")
	require.ErrorIs(t, err, ErrPaymentBounds)
}

func TestUpdatePaymentMissingInvoice(t *testing.T) {
	svc := newTestService(newMemoryInvoiceRepo())

	_, err := svc.UpdatePayment(context.Background(), 999, 10, "sara")
	require.ErrorIs(t, err, ErrNotFound)
}
