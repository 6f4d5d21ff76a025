package invoices

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
)

func newReopenService(t *testing.T, repo *memoryInvoiceRepo) (*Service, *drafts.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := drafts.NewStore(client, time.Hour)
	svc := NewService(slog.Default(), repo, store, &stubCustomers{repo: repo}, &stubStock{repo: repo}, nil, nil)
	return svc, store
}

func TestReopenForEditBuildsDraft(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.stock["product:7"] = 10
	svc, store := newReopenService(t, repo)
	ctx := context.Background()

	customerID := int64(42)
	d := retailDraft()
	d.SaleType = drafts.SaleTypeWholesale
	d.CustomerID = &customerID
	d.Lines[0].Qty = 5
	d.AmountPaid = 50
	d.Recalculate()

	id, _, err := svc.FinalizeDraft(ctx, d, "sara")
	require.NoError(t, err)
	require.Equal(t, 5.0, repo.stock["product:7"])

	reopened, err := svc.ReopenForEdit(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, *reopened.EditingInvoiceID)
	require.Equal(t, drafts.SaleTypeWholesale, reopened.SaleType)
	require.Len(t, reopened.Lines, 1)

	// Stock shows 5 but the invoice already sold 5, so the draft may use 10.
	line := reopened.Lines[0]
	require.Equal(t, 5.0, line.StockSnapshot)
	require.True(t, line.InDatabase)
	require.Equal(t, 5.0, reopened.CommittedQty["product:7"])
	require.Equal(t, 10.0, reopened.AvailableStock(line.ID))

	// Debt 450 on the books minus this invoice's 450 outstanding: the
	// draft clamps against a zero prior balance.
	require.Equal(t, 0.0, reopened.CustomerDebtBefore)
	require.Equal(t, customerID, *reopened.EditingCustomerID)
	require.Equal(t, customers.CurrencyUSD, reopened.EditingCurrency)
	require.Equal(t, 450.0, reopened.EditingOutstanding)

	// The reopened draft is persisted and its tab registered.
	loaded, err := store.Load(ctx, reopened.TabID)
	require.NoError(t, err)
	require.Equal(t, reopened.TabID, loaded.TabID)
	tabs, err := store.ListTabs(ctx, drafts.SaleTypeWholesale)
	require.NoError(t, err)
	require.Equal(t, []string{reopened.TabID}, tabs)
}
