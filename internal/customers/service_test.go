package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryCustomerRepo struct {
	customers map[int64]*Customer
	nextID    int64
}

func newMemoryCustomerRepo() *memoryCustomerRepo {
	return &memoryCustomerRepo{customers: make(map[int64]*Customer)}
}

func (r *memoryCustomerRepo) Get(ctx context.Context, id int64) (*Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryCustomerRepo) List(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *memoryCustomerRepo) Create(ctx context.Context, form CustomerForm) (int64, error) {
	r.nextID++
	r.customers[r.nextID] = &Customer{ID: r.nextID, Name: form.Name, IsActive: form.IsActive}
	return r.nextID, nil
}

func (r *memoryCustomerRepo) Update(ctx context.Context, id int64, form CustomerForm) error {
	c, ok := r.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.Name = form.Name
	c.IsActive = form.IsActive
	return nil
}

func (r *memoryCustomerRepo) Deactivate(ctx context.Context, id int64) error {
	c, ok := r.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = false
	return nil
}

func (r *memoryCustomerRepo) AdjustDebt(ctx context.Context, id int64, currency Currency, delta float64) error {
	c, ok := r.customers[id]
	if !ok {
		return ErrNotFound
	}
	if currency == CurrencyIQD {
		c.DebtIQD += delta
	} else {
		c.DebtUSD += delta
	}
	return nil
}

func TestCreateTrimsName(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo, nil)

	c, err := svc.Create(context.Background(), CustomerForm{Name: "  Karwan  ", IsActive: true}, "sara")
	require.NoError(t, err)
	require.Equal(t, "Karwan", c.Name)
}

func TestDebtPerCurrency(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CustomerForm{Name: "Karwan", IsActive: true}, "sara")
	require.NoError(t, err)

	require.NoError(t, repo.AdjustDebt(context.Background(), created.ID, CurrencyUSD, 150))
	require.NoError(t, repo.AdjustDebt(context.Background(), created.ID, CurrencyIQD, 200000))

	c, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 150.0, c.Debt(CurrencyUSD))
	require.Equal(t, 200000.0, c.Debt(CurrencyIQD))
}

func TestDeactivate(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CustomerForm{Name: "Karwan", IsActive: true}, "sara")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), created.ID, "sara"))

	c, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, c.IsActive)

	require.ErrorIs(t, svc.Deactivate(context.Background(), 999, "sara"), ErrNotFound)
}

func TestCurrencyValid(t *testing.T) {
	require.True(t, CurrencyUSD.Valid())
	require.True(t, CurrencyIQD.Valid())
	require.False(t, Currency("EUR").Valid())
}
