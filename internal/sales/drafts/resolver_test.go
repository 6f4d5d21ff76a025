package drafts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tishkos/arbatis-pos/internal/catalog/motorcycles"
	"github.com/Tishkos/arbatis-pos/internal/catalog/products"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
)

type fakeProductSource struct {
	items map[string]*products.Product
	calls int
}

func (f *fakeProductSource) FindByName(ctx context.Context, name string) (*products.Product, error) {
	f.calls++
	if p, ok := f.items[name]; ok {
		return p, nil
	}
	return nil, products.ErrNotFound
}

type fakeMotorcycleSource struct {
	items map[string]*motorcycles.Motorcycle
}

func (f *fakeMotorcycleSource) FindByName(ctx context.Context, name string) (*motorcycles.Motorcycle, error) {
	if m, ok := f.items[name]; ok {
		return m, nil
	}
	return nil, motorcycles.ErrNotFound
}

func newTestResolver() (*Resolver, *fakeProductSource) {
	ps := &fakeProductSource{items: map[string]*products.Product{
		"Engine Oil": {ID: 7, Name: "Engine Oil", RetailPrice: 12, WholesalePrice: 9, Stock: 40},
	}}
	ms := &fakeMotorcycleSource{items: map[string]*motorcycles.Motorcycle{
		"CG125": {ID: 3, Name: "CG125", RetailPrice: 1500, WholesalePrice: 1350, Stock: 4},
	}}
	return NewResolver(ps, ms), ps
}

func TestResolveLineMatchesProduct(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines:    []LineItem{{ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", Qty: 2}},
	}

	require.NoError(t, r.ResolveLine(context.Background(), d, "l1"))

	line := d.Line("l1")
	require.True(t, line.InDatabase)
	require.False(t, line.NotFound)
	require.Equal(t, int64(7), *line.ItemID)
	require.Equal(t, 12.0, line.Rate)
	require.Equal(t, 40.0, line.StockSnapshot)
}

func TestResolveLineWholesaleRate(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeWholesale,
		Lines:    []LineItem{{ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil"}},
	}

	require.NoError(t, r.ResolveLine(context.Background(), d, "l1"))
	require.Equal(t, 9.0, d.Line("l1").Rate)
}

func TestResolveLineMotorcycle(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines:    []LineItem{{ID: "l1", ItemKind: inventory.ItemKindMotorcycle, Name: "CG125"}},
	}

	require.NoError(t, r.ResolveLine(context.Background(), d, "l1"))

	line := d.Line("l1")
	require.Equal(t, int64(3), *line.ItemID)
	require.Equal(t, 1500.0, line.Rate)
}

func TestResolveLineNoMatchFlagsLine(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines:    []LineItem{{ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "no such thing"}},
	}

	require.NoError(t, r.ResolveLine(context.Background(), d, "l1"))

	line := d.Line("l1")
	require.False(t, line.InDatabase)
	require.True(t, line.NotFound)
	require.Nil(t, line.ItemID)
}

func TestApplyDiscardsStaleToken(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines:    []LineItem{{ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil"}},
	}

	stale := r.NextToken("l1")
	fresh := r.NextToken("l1")

	match := &ItemMatch{ItemID: 99, Kind: inventory.ItemKindProduct, Name: "Stale Result", RetailPrice: 1}
	require.False(t, r.Apply(d, "l1", stale, match))
	require.Nil(t, d.Line("l1").ItemID)

	current := &ItemMatch{ItemID: 7, Kind: inventory.ItemKindProduct, Name: "Engine Oil", RetailPrice: 12, Stock: 40}
	require.True(t, r.Apply(d, "l1", fresh, current))
	require.Equal(t, int64(7), *d.Line("l1").ItemID)
}

func TestApplyPreservesEditedRateForSameItem(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines: []LineItem{{
			ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil",
			ItemID: ptr(7), Rate: 11.5, RateEdited: true,
		}},
	}

	token := r.NextToken("l1")
	match := &ItemMatch{ItemID: 7, Kind: inventory.ItemKindProduct, Name: "Engine Oil", RetailPrice: 12}
	require.True(t, r.Apply(d, "l1", token, match))

	require.Equal(t, 11.5, d.Line("l1").Rate)
	require.True(t, d.Line("l1").RateEdited)
}

func TestApplyReplacesRateWhenIdentityChanges(t *testing.T) {
	r, _ := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines: []LineItem{{
			ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Brake Pads",
			ItemID: ptr(7), Rate: 11.5, RateEdited: true,
		}},
	}

	token := r.NextToken("l1")
	match := &ItemMatch{ItemID: 8, Kind: inventory.ItemKindProduct, Name: "Brake Pads", RetailPrice: 20}
	require.True(t, r.Apply(d, "l1", token, match))

	require.Equal(t, 20.0, d.Line("l1").Rate)
	require.False(t, d.Line("l1").RateEdited)
}

func TestResolveAllResolvesPendingLines(t *testing.T) {
	r, ps := newTestResolver()
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines: []LineItem{
			{ID: "l1", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil"},
			{ID: "l2", ItemKind: inventory.ItemKindMotorcycle, Name: "CG125"},
			{ID: "l3", ItemKind: inventory.ItemKindProduct, Name: "Engine Oil", ItemID: ptr(7), InDatabase: true},
		},
	}

	require.NoError(t, r.ResolveAll(context.Background(), d))

	require.True(t, d.Line("l1").InDatabase)
	require.True(t, d.Line("l2").InDatabase)
	// Already resolved lines are not looked up again.
	require.Equal(t, 1, ps.calls)
}

func TestForgetDropsTokenState(t *testing.T) {
	r, _ := newTestResolver()

	r.NextToken("l1")
	r.NextToken("l1")
	require.Equal(t, uint64(2), r.Current("l1"))

	r.Forget("l1")
	require.Equal(t, uint64(0), r.Current("l1"))
}
