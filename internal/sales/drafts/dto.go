package drafts

import (
	"time"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
)

// LineForm is one submitted invoice row. An empty ID marks a new line.
type LineForm struct {
	ID       string             `json:"id"`
	ItemKind inventory.ItemKind `json:"item_kind" validate:"required,oneof=product motorcycle"`
	Name     string             `json:"name" validate:"max=200"`
	Qty      float64            `json:"qty" validate:"gte=0"`
	Rate     float64            `json:"rate" validate:"gte=0"`
}

// DraftForm is the PUT body for a draft save. Sale type is fixed at tab
// creation and not part of the form.
type DraftForm struct {
	CustomerID    *int64             `json:"customer_id" validate:"omitempty,gt=0"`
	Series        string             `json:"series" validate:"max=40"`
	Currency      customers.Currency `json:"currency" validate:"omitempty,oneof=USD IQD"`
	IssuedAt      time.Time          `json:"issued_at"`
	DiscountMode  DiscountMode       `json:"discount_mode" validate:"omitempty,oneof=percent fixed"`
	DiscountValue float64            `json:"discount_value" validate:"gte=0"`
	AmountPaid    float64            `json:"amount_paid" validate:"gte=0"`
	Lines         []LineForm         `json:"lines" validate:"dive"`
}

// OpenTabRequest is the POST body for opening a tab.
type OpenTabRequest struct {
	SaleType string `json:"sale_type" validate:"required,oneof=retail wholesale"`
}

// FinalizeResponse reports the committed invoice.
type FinalizeResponse struct {
	InvoiceID int64  `json:"invoice_id"`
	Number    string `json:"number"`
}
