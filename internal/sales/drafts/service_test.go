package drafts

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
)

type fakeCustomerSource struct {
	customers map[int64]*customers.Customer
}

func (f *fakeCustomerSource) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	if c, ok := f.customers[id]; ok {
		return c, nil
	}
	return nil, customers.ErrNotFound
}

type fakeFinalizer struct {
	invoiceID int64
	number    string
	err       error
	calls     int
	last      *Draft
}

func (f *fakeFinalizer) FinalizeDraft(ctx context.Context, d *Draft, actor string) (int64, string, error) {
	f.calls++
	f.last = d
	return f.invoiceID, f.number, f.err
}

func newTestService(t *testing.T) (*Service, *fakeFinalizer) {
	t.Helper()
	store, _ := newTestStore(t)
	resolver, _ := newTestResolver()
	cust := &fakeCustomerSource{customers: map[int64]*customers.Customer{
		42: {ID: 42, Name: "Karwan", DebtUSD: 500, DebtIQD: 120000, IsActive: true},
	}}
	fin := &fakeFinalizer{invoiceID: 11, number: "INV-2608-0001"}
	return NewService(slog.Default(), store, resolver, cust, fin), fin
}

func TestOpenTabCreatesEmptyDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)
	require.NotEmpty(t, d.TabID)
	require.Equal(t, uint64(1), d.Version)
	require.Empty(t, d.Lines)

	tabs, err := svc.ListTabs(ctx, SaleTypeRetail)
	require.NoError(t, err)
	require.Equal(t, []string{d.TabID}, tabs)

	_, err = svc.OpenTab(ctx, SaleType("bogus"))
	require.ErrorIs(t, err, ErrInvalidSaleType)
}

func TestSaveResolvesAndRecalculates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)

	res, err := svc.Save(ctx, d.TabID, DraftForm{
		Lines: []LineForm{
			{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2},
		},
	})
	require.NoError(t, err)

	saved := res.Draft
	require.Len(t, saved.Lines, 1)
	line := saved.Lines[0]
	require.True(t, line.InDatabase)
	require.Equal(t, int64(7), *line.ItemID)
	require.Equal(t, 12.0, line.Rate)
	require.Equal(t, 24.0, line.Amount)
	require.Equal(t, 24.0, saved.Totals.GrandTotal)
	require.Equal(t, uint64(2), saved.Version)

	loaded, err := svc.Get(ctx, d.TabID)
	require.NoError(t, err)
	require.Equal(t, saved.Totals, loaded.Totals)
}

func TestSaveClampsQuantityToStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)

	// Catalog has 4 CG125 in stock.
	res, err := svc.Save(ctx, d.TabID, DraftForm{
		Lines: []LineForm{
			{ItemKind: inventory.ItemKindMotorcycle, Name: "CG125", Qty: 9},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.ClampedLines, 1)
	require.Equal(t, 4.0, res.Draft.Lines[0].Qty)
}

func TestSaveClampsWholesalePayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeWholesale)
	require.NoError(t, err)

	customerID := int64(42)
	res, err := svc.Save(ctx, d.TabID, DraftForm{
		CustomerID: &customerID,
		Currency:   customers.CurrencyUSD,
		AmountPaid: 900,
		Lines: []LineForm{
			{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2, Rate: 150},
		},
	})
	require.NoError(t, err)

	// Debt 500 plus the 300 invoice bounds the payment at 800.
	require.True(t, res.PaymentClamped)
	require.Equal(t, 500.0, res.Draft.CustomerDebtBefore)
	require.Equal(t, 800.0, res.Draft.AmountPaid)
}

func TestSaveExcludesOwnOutstandingOnReopenedDraft(t *testing.T) {
	store, _ := newTestStore(t)
	resolver, _ := newTestResolver()
	cust := &fakeCustomerSource{customers: map[int64]*customers.Customer{
		77: {ID: 77, Name: "Bazaar Parts Co", DebtUSD: 300, IsActive: true},
	}}
	svc := NewService(slog.Default(), store, resolver, cust, &fakeFinalizer{})
	ctx := context.Background()

	// The customer's whole 300 balance is the outstanding of the invoice
	// being edited.
	customerID := int64(77)
	invoiceID := int64(9)
	itemID := int64(7)
	d := &Draft{
		TabID:      "tab-edit",
		SaleType:   SaleTypeWholesale,
		CustomerID: &customerID,
		Currency:   customers.CurrencyUSD,
		Lines: []LineItem{
			{ID: "l1", ItemKind: inventory.ItemKindProduct, ItemID: &itemID, Name: "Engine Oil", Qty: 2, Rate: 150, InDatabase: true, StockSnapshot: 40, RateEdited: true},
		},
		EditingInvoiceID:   &invoiceID,
		EditingCustomerID:  &customerID,
		EditingCurrency:    customers.CurrencyUSD,
		EditingOutstanding: 300,
		CommittedQty:       map[string]float64{ItemKey(inventory.ItemKindProduct, 7): 2},
		Version:            1,
	}
	d.Recalculate()
	require.NoError(t, store.Save(ctx, d))

	// The ceiling is the 300 grand alone, not 300 debt + 300 grand.
	res, err := svc.Save(ctx, "tab-edit", DraftForm{
		CustomerID: &customerID,
		Currency:   customers.CurrencyUSD,
		AmountPaid: 600,
		Lines: []LineForm{
			{ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2, Rate: 150},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Draft.CustomerDebtBefore)
	require.True(t, res.PaymentClamped)
	require.Equal(t, 300.0, res.Draft.AmountPaid)
}

func TestSaveKeepsDiscountModeWhenOmitted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)

	res, err := svc.Save(ctx, d.TabID, DraftForm{
		DiscountMode:  DiscountModeFixed,
		DiscountValue: 4,
		Lines:         []LineForm{{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 20.0, res.Draft.Totals.GrandTotal)

	// A form without discount_mode keeps the stored fixed mode.
	res, err = svc.Save(ctx, d.TabID, DraftForm{
		DiscountValue: 4,
		Lines:         []LineForm{{ID: res.Draft.Lines[0].ID, ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2, Rate: 12}},
	})
	require.NoError(t, err)
	require.Equal(t, DiscountModeFixed, res.Draft.DiscountMode)
	require.Equal(t, 4.0, res.Draft.Totals.DiscountAmount)
	require.Equal(t, 20.0, res.Draft.Totals.GrandTotal)
}

func TestSavePreservesResolutionAcrossSaves(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)

	res, err := svc.Save(ctx, d.TabID, DraftForm{
		Lines: []LineForm{{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 1}},
	})
	require.NoError(t, err)
	lineID := res.Draft.Lines[0].ID

	// Same name, changed quantity: no re-resolution, resolution state kept.
	res, err = svc.Save(ctx, d.TabID, DraftForm{
		Lines: []LineForm{{ID: lineID, ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 3, Rate: 12}},
	})
	require.NoError(t, err)
	require.True(t, res.Draft.Lines[0].InDatabase)
	require.Equal(t, 36.0, res.Draft.Lines[0].Amount)
}

func TestFinalizeHappyPath(t *testing.T) {
	svc, fin := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)
	_, err = svc.Save(ctx, d.TabID, DraftForm{
		Lines: []LineForm{{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2}},
	})
	require.NoError(t, err)

	invoiceID, number, err := svc.Finalize(ctx, d.TabID, "sara")
	require.NoError(t, err)
	require.Equal(t, int64(11), invoiceID)
	require.Equal(t, "INV-2608-0001", number)
	require.Equal(t, 1, fin.calls)

	// The snapshot and tab registration are gone after commit.
	_, err = svc.Get(ctx, d.TabID)
	require.ErrorIs(t, err, ErrNotFound)
	tabs, err := svc.ListTabs(ctx, SaleTypeRetail)
	require.NoError(t, err)
	require.Empty(t, tabs)
}

func TestFinalizeValidations(t *testing.T) {
	svc, fin := newTestService(t)
	ctx := context.Background()

	t.Run("empty lines", func(t *testing.T) {
		d, err := svc.OpenTab(ctx, SaleTypeRetail)
		require.NoError(t, err)
		_, _, err = svc.Finalize(ctx, d.TabID, "sara")
		require.ErrorIs(t, err, ErrEmptyLines)
	})

	t.Run("wholesale requires customer", func(t *testing.T) {
		d, err := svc.OpenTab(ctx, SaleTypeWholesale)
		require.NoError(t, err)
		_, err = svc.Save(ctx, d.TabID, DraftForm{
			Lines: []LineForm{{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 1}},
		})
		require.NoError(t, err)
		_, _, err = svc.Finalize(ctx, d.TabID, "sara")
		require.ErrorIs(t, err, ErrCustomerRequired)
	})

	t.Run("unresolved line", func(t *testing.T) {
		d, err := svc.OpenTab(ctx, SaleTypeRetail)
		require.NoError(t, err)
		_, err = svc.Save(ctx, d.TabID, DraftForm{
			Lines: []LineForm{{ItemKind: inventory.ItemKindProduct, Name: "no such thing", Qty: 1}},
		})
		require.NoError(t, err)
		_, _, err = svc.Finalize(ctx, d.TabID, "sara")
		require.ErrorIs(t, err, ErrUnresolvedLine)
	})

	require.Zero(t, fin.calls)
}

func TestCloseTabRemovesDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)
	require.NoError(t, svc.CloseTab(ctx, d.TabID))

	_, err = svc.Get(ctx, d.TabID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.CloseTab(ctx, d.TabID), ErrNotFound)
}

func TestResolveLineEndpointFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.OpenTab(ctx, SaleTypeRetail)
	require.NoError(t, err)
	res, err := svc.Save(ctx, d.TabID, DraftForm{
		Lines: []LineForm{{ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 1}},
	})
	require.NoError(t, err)
	lineID := res.Draft.Lines[0].ID

	updated, err := svc.ResolveLine(ctx, d.TabID, lineID)
	require.NoError(t, err)
	require.True(t, updated.Line(lineID).InDatabase)

	_, err = svc.ResolveLine(ctx, d.TabID, "missing-line")
	require.ErrorIs(t, err, ErrNotFound)
}
