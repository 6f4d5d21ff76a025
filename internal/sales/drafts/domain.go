package drafts

import (
	"errors"
	"time"

	"github.com/Tishkos/arbatis-pos/internal/customers"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
)

// SaleType selects pricing and payment behaviour for a draft.
type SaleType string

const (
	SaleTypeRetail    SaleType = "retail"
	SaleTypeWholesale SaleType = "wholesale"
)

// Valid reports whether the sale type is known.
func (t SaleType) Valid() bool {
	return t == SaleTypeRetail || t == SaleTypeWholesale
}

// DiscountMode toggles between percentage-of-subtotal and a fixed value.
type DiscountMode string

const (
	DiscountModePercent DiscountMode = "percent"
	DiscountModeFixed   DiscountMode = "fixed"
)

// Valid reports whether the discount mode is known.
func (m DiscountMode) Valid() bool {
	return m == DiscountModePercent || m == DiscountModeFixed
}

// LineItem is one row of the invoice form. ItemID stays nil until the
// resolver matches the typed name against the catalog.
type LineItem struct {
	ID            string             `json:"id"`
	ItemKind      inventory.ItemKind `json:"item_kind"`
	ItemID        *int64             `json:"item_id,omitempty"`
	Name          string             `json:"name"`
	Qty           float64            `json:"qty"`
	Rate          float64            `json:"rate"`
	Amount        float64            `json:"amount"`
	StockSnapshot float64            `json:"stock_snapshot"`
	InDatabase    bool               `json:"in_database"`
	NotFound      bool               `json:"not_found"`
	// RateEdited marks a rate typed by the user; resolution preserves it
	// unless the item identity changes.
	RateEdited bool `json:"rate_edited"`
	// ResolveToken is the latest resolution token issued for this line.
	// Responses carrying an older token are discarded.
	ResolveToken uint64 `json:"resolve_token"`
}

// Totals holds the derived figures recomputed on every draft change.
type Totals struct {
	Quantity       float64 `json:"quantity"`
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	GrandTotal     float64 `json:"grand_total"`
	Rounding       float64 `json:"rounding"`
	AmountPaid     float64 `json:"amount_paid"`
	Outstanding    float64 `json:"outstanding"`
}

// Draft is one in-progress sales invoice, owned by a single form tab.
// Snapshots of the whole struct are persisted to the draft store on every
// change; Version makes saves monotonic so a restore can never clobber a
// newer snapshot.
type Draft struct {
	TabID      string             `json:"tab_id"`
	SaleType   SaleType           `json:"sale_type"`
	CustomerID *int64             `json:"customer_id,omitempty"`
	Series     string             `json:"series,omitempty"`
	Currency   customers.Currency `json:"currency"`
	IssuedAt   time.Time          `json:"issued_at"`

	Lines []LineItem `json:"lines"`

	DiscountMode  DiscountMode `json:"discount_mode"`
	DiscountValue float64      `json:"discount_value"`
	AmountPaid    float64      `json:"amount_paid"`

	// CustomerDebtBefore snapshots the customer's balance in the draft
	// currency at selection time. Payment clamping works against it.
	CustomerDebtBefore float64 `json:"customer_debt_before"`

	// EditingInvoiceID is set when the draft reopens a committed invoice.
	EditingInvoiceID *int64 `json:"editing_invoice_id,omitempty"`
	// EditingCustomerID, EditingCurrency and EditingOutstanding record the
	// debt the reopened invoice already placed on the books. Debt-before
	// math subtracts it so the payment ceiling never counts the invoice
	// against itself.
	EditingCustomerID  *int64             `json:"editing_customer_id,omitempty"`
	EditingCurrency    customers.Currency `json:"editing_currency,omitempty"`
	EditingOutstanding float64            `json:"editing_outstanding,omitempty"`
	// CommittedQty maps item keys to quantities already sold by the
	// invoice being edited. Available-stock math adds them back so the
	// editor shows true remaining availability.
	CommittedQty map[string]float64 `json:"committed_qty,omitempty"`

	Totals Totals `json:"totals"`

	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line returns the line with the given id, or nil.
func (d *Draft) Line(lineID string) *LineItem {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			return &d.Lines[i]
		}
	}
	return nil
}

var (
	ErrNotFound         = errors.New("draft not found")
	ErrStaleSnapshot    = errors.New("draft snapshot is stale")
	ErrInvalidSaleType  = errors.New("invalid sale type")
	ErrCustomerRequired = errors.New("wholesale invoice requires a customer")
	ErrEmptyLines       = errors.New("invoice requires at least one line item")
	ErrUnresolvedLine   = errors.New("line item is not resolved against the catalog")
	ErrStockExceeded    = errors.New("quantity exceeds available stock")
	ErrPaymentBounds    = errors.New("payment outside allowed bounds")
)
