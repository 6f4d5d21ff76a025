package drafts

import "math"

// LineAmount derives the amount for a quantity and rate.
func LineAmount(qty, rate float64) float64 {
	return qty * rate
}

// Recalculate restores the line-amount invariant and recomputes the draft
// totals. Calling it twice with unchanged inputs yields identical totals.
// It returns true when the payment had to be clamped.
func (d *Draft) Recalculate() bool {
	var quantity, subtotal float64
	for i := range d.Lines {
		line := &d.Lines[i]
		line.Amount = LineAmount(line.Qty, line.Rate)
		quantity += line.Qty
		subtotal += line.Amount
	}

	discount := discountAmount(d.DiscountMode, d.DiscountValue, subtotal)
	grand := subtotal - discount
	if grand < 0 {
		grand = 0
	}
	rounding := math.Round(grand) - grand

	clamped := false
	switch d.SaleType {
	case SaleTypeRetail:
		// Retail assumes full payment; paid tracks the grand total.
		d.AmountPaid = grand
	case SaleTypeWholesale:
		maxPaid := d.CustomerDebtBefore + grand
		if d.AmountPaid > maxPaid {
			d.AmountPaid = maxPaid
			clamped = true
		}
		if d.AmountPaid < 0 {
			d.AmountPaid = 0
			clamped = true
		}
	}

	d.Totals = Totals{
		Quantity:       quantity,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		GrandTotal:     grand,
		Rounding:       rounding,
		AmountPaid:     d.AmountPaid,
		Outstanding:    grand - d.AmountPaid,
	}
	return clamped
}

func discountAmount(mode DiscountMode, value, subtotal float64) float64 {
	if value <= 0 {
		return 0
	}
	var discount float64
	switch mode {
	case DiscountModePercent:
		discount = subtotal * (value / 100)
	case DiscountModeFixed:
		discount = value
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// MaxPayment returns the upper payment bound for the draft: the customer
// balance before the invoice plus the grand total. Paying more would push
// the customer's debt negative.
func (d *Draft) MaxPayment() float64 {
	return d.CustomerDebtBefore + d.Totals.GrandTotal
}
