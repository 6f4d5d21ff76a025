package customers

import "time"

// Currency identifies which debt balance an amount belongs to.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyIQD Currency = "IQD"
)

// Valid reports whether the currency is one the ledger tracks.
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyIQD
}

// Customer carries outstanding debt in two currencies. The draft form
// reads these balances; only invoice finalize/payment edits change them.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	DebtUSD   float64   `json:"debt_usd"`
	DebtIQD   float64   `json:"debt_iqd"`
	Notes     *string   `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Debt returns the balance for the given currency.
func (c *Customer) Debt(currency Currency) float64 {
	if currency == CurrencyIQD {
		return c.DebtIQD
	}
	return c.DebtUSD
}

// ListFilters represents list page filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool
}
