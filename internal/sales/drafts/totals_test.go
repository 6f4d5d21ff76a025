package drafts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecalculateBasicTotals(t *testing.T) {
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines: []LineItem{
			{ID: "l1", Qty: 2, Rate: 100},
		},
	}

	d.Recalculate()

	require.Equal(t, 200.0, d.Lines[0].Amount)
	require.Equal(t, 200.0, d.Totals.Subtotal)
	require.Equal(t, 200.0, d.Totals.GrandTotal)
	require.Equal(t, 0.0, d.Totals.Rounding)
	require.Equal(t, 200.0, d.Totals.AmountPaid)
	require.Equal(t, 0.0, d.Totals.Outstanding)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	d := &Draft{
		SaleType:      SaleTypeWholesale,
		DiscountMode:  DiscountModePercent,
		DiscountValue: 10,
		AmountPaid:    50,
		Lines: []LineItem{
			{ID: "l1", Qty: 3, Rate: 40},
			{ID: "l2", Qty: 1, Rate: 19.5},
		},
	}

	d.Recalculate()
	first := d.Totals
	d.Recalculate()

	require.Equal(t, first, d.Totals)
}

func TestRecalculatePercentDiscount(t *testing.T) {
	d := &Draft{
		SaleType:      SaleTypeRetail,
		DiscountMode:  DiscountModePercent,
		DiscountValue: 25,
		Lines:         []LineItem{{ID: "l1", Qty: 4, Rate: 100}},
	}

	d.Recalculate()

	require.Equal(t, 100.0, d.Totals.DiscountAmount)
	require.Equal(t, 300.0, d.Totals.GrandTotal)
}

func TestRecalculateFixedDiscountCappedAtSubtotal(t *testing.T) {
	d := &Draft{
		SaleType:      SaleTypeRetail,
		DiscountMode:  DiscountModeFixed,
		DiscountValue: 500,
		Lines:         []LineItem{{ID: "l1", Qty: 1, Rate: 120}},
	}

	d.Recalculate()

	require.Equal(t, 120.0, d.Totals.DiscountAmount)
	require.Equal(t, 0.0, d.Totals.GrandTotal)
}

func TestRecalculateRounding(t *testing.T) {
	d := &Draft{
		SaleType: SaleTypeRetail,
		Lines:    []LineItem{{ID: "l1", Qty: 3, Rate: 33.33}},
	}

	d.Recalculate()

	// 99.99 rounds up to 100, so the rounding adjustment is +0.01.
	require.InDelta(t, 0.01, d.Totals.Rounding, 1e-9)
}

func TestRecalculateRetailPaymentTracksGrand(t *testing.T) {
	d := &Draft{
		SaleType:   SaleTypeRetail,
		AmountPaid: 5,
		Lines:      []LineItem{{ID: "l1", Qty: 1, Rate: 75}},
	}

	d.Recalculate()

	require.Equal(t, 75.0, d.AmountPaid)
	require.Equal(t, 75.0, d.Totals.AmountPaid)
}

func TestRecalculateWholesalePaymentClamp(t *testing.T) {
	d := &Draft{
		SaleType:           SaleTypeWholesale,
		CustomerDebtBefore: 500,
		AmountPaid:         900,
		Lines:              []LineItem{{ID: "l1", Qty: 3, Rate: 100}},
	}

	clamped := d.Recalculate()

	// Debt 500 plus this invoice's 300 bounds the payment at 800.
	require.True(t, clamped)
	require.Equal(t, 800.0, d.AmountPaid)
	require.Equal(t, 800.0, d.MaxPayment())
}

func TestRecalculateWholesalePaymentWithinBounds(t *testing.T) {
	d := &Draft{
		SaleType:           SaleTypeWholesale,
		CustomerDebtBefore: 500,
		AmountPaid:         200,
		Lines:              []LineItem{{ID: "l1", Qty: 3, Rate: 100}},
	}

	clamped := d.Recalculate()

	require.False(t, clamped)
	require.Equal(t, 200.0, d.AmountPaid)
	require.Equal(t, 100.0, d.Totals.Outstanding)
}

func TestRecalculateNegativePaymentClampedToZero(t *testing.T) {
	d := &Draft{
		SaleType:   SaleTypeWholesale,
		AmountPaid: -10,
		Lines:      []LineItem{{ID: "l1", Qty: 1, Rate: 50}},
	}

	clamped := d.Recalculate()

	require.True(t, clamped)
	require.Equal(t, 0.0, d.AmountPaid)
}
