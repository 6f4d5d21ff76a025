package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStockRepo struct {
	stock     map[string]float64
	movements []Movement
	nextID    int64
	failTx    error
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{stock: make(map[string]float64)}
}

func key(kind ItemKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (r *memoryStockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.failTx != nil {
		return r.failTx
	}
	return fn(ctx, &memoryStockTx{repo: r})
}

func (r *memoryStockRepo) List(ctx context.Context, filters ListFilters) ([]Movement, int, error) {
	var out []Movement
	for _, m := range r.movements {
		if filters.ItemKind != "" && m.ItemKind != filters.ItemKind {
			continue
		}
		if filters.ItemID != 0 && m.ItemID != filters.ItemID {
			continue
		}
		out = append(out, m)
	}
	return out, len(out), nil
}

func (r *memoryStockRepo) StockLevel(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	level, ok := r.stock[key(kind, itemID)]
	if !ok {
		return 0, ErrItemNotFound
	}
	return level, nil
}

type memoryStockTx struct {
	repo *memoryStockRepo
}

func (t *memoryStockTx) GetStockForUpdate(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	return t.repo.StockLevel(ctx, kind, itemID)
}

func (t *memoryStockTx) SetStock(ctx context.Context, kind ItemKind, itemID int64, qty float64) error {
	t.repo.stock[key(kind, itemID)] = qty
	return nil
}

func (t *memoryStockTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	t.repo.nextID++
	m.ID = t.repo.nextID
	t.repo.movements = append(t.repo.movements, m)
	return m.ID, nil
}

func TestPostAdjustmentIncreasesStock(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.stock["product:7"] = 3
	svc := NewService(repo, nil, nil)

	m, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		ItemKind: ItemKindProduct,
		ItemID:   7,
		Qty:      5,
		Actor:    "sara",
	})
	require.NoError(t, err)
	require.Equal(t, MovementTypeAdjust, m.Type)
	require.Equal(t, 5.0, m.Qty)
	require.NotEmpty(t, m.RefID)
	require.Equal(t, 8.0, repo.stock["product:7"])
}

func TestPostAdjustmentRejectsNegativeStock(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.stock["product:7"] = 3
	svc := NewService(repo, nil, nil)

	_, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		ItemKind: ItemKindProduct,
		ItemID:   7,
		Qty:      -4,
		Actor:    "sara",
	})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.Equal(t, 3.0, repo.stock["product:7"])
	require.Empty(t, repo.movements)
}

func TestPostAdjustmentRejectsZeroQuantity(t *testing.T) {
	svc := NewService(newMemoryStockRepo(), nil, nil)

	_, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		ItemKind: ItemKindProduct,
		ItemID:   7,
		Qty:      0,
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPostAdjustmentUnknownItem(t *testing.T) {
	svc := NewService(newMemoryStockRepo(), nil, nil)

	_, err := svc.PostAdjustment(context.Background(), AdjustmentInput{
		ItemKind: ItemKindMotorcycle,
		ItemID:   99,
		Qty:      1,
	})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestListMovementsFilters(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.stock["product:7"] = 10
	repo.stock["motorcycle:3"] = 2
	svc := NewService(repo, nil, nil)

	for _, in := range []AdjustmentInput{
		{ItemKind: ItemKindProduct, ItemID: 7, Qty: 1},
		{ItemKind: ItemKindMotorcycle, ItemID: 3, Qty: 1},
	} {
		_, err := svc.PostAdjustment(context.Background(), in)
		require.NoError(t, err)
	}

	movements, total, err := svc.ListMovements(context.Background(), ListFilters{ItemKind: ItemKindProduct})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, ItemKindProduct, movements[0].ItemKind)
}

func TestStockLevelValidation(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.stock["product:7"] = 10
	svc := NewService(repo, nil, nil)

	level, err := svc.StockLevel(context.Background(), ItemKindProduct, 7)
	require.NoError(t, err)
	require.Equal(t, 10.0, level)

	_, err = svc.StockLevel(context.Background(), ItemKind("bogus"), 7)
	require.Error(t, err)
}
