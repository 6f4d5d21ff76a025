package invoices

import (
	"errors"
	"time"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
	"github.com/Tishkos/arbatis-pos/internal/sales/drafts"
)

// Invoice is a committed sale. Totals are frozen at finalize time; only
// the payment fields may change afterwards.
type Invoice struct {
	ID         int64              `json:"id"`
	Number     string             `json:"number"`
	SaleType   drafts.SaleType    `json:"sale_type"`
	CustomerID *int64             `json:"customer_id,omitempty"`
	Series     string             `json:"series,omitempty"`
	Currency   customers.Currency `json:"currency"`
	IssuedAt   time.Time          `json:"issued_at"`

	Subtotal       float64             `json:"subtotal"`
	DiscountMode   drafts.DiscountMode `json:"discount_mode"`
	DiscountValue  float64             `json:"discount_value"`
	DiscountAmount float64             `json:"discount_amount"`
	GrandTotal     float64             `json:"grand_total"`
	Rounding       float64             `json:"rounding"`
	AmountPaid     float64             `json:"amount_paid"`
	Outstanding    float64             `json:"outstanding"`

	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []Line `json:"lines,omitempty"`
}

// Line is one committed invoice row.
type Line struct {
	ID        int64              `json:"id"`
	InvoiceID int64              `json:"invoice_id"`
	ItemKind  inventory.ItemKind `json:"item_kind"`
	ItemID    int64              `json:"item_id"`
	Name      string             `json:"name"`
	Qty       float64            `json:"qty"`
	Rate      float64            `json:"rate"`
	Amount    float64            `json:"amount"`
}

// ListFilters represents list page filters.
type ListFilters struct {
	Page       int
	Limit      int
	SaleType   drafts.SaleType
	CustomerID int64
	From       time.Time
	To         time.Time
}

var (
	ErrNotFound      = errors.New("invoice not found")
	ErrPaymentBounds = errors.New("payment outside allowed bounds")
)
