package products

import "time"

// Product is a stocked catalog item with a retail and a wholesale price.
type Product struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	CategoryID     *int64    `json:"category_id,omitempty"`
	RetailPrice    float64   `json:"retail_price"`
	WholesalePrice float64   `json:"wholesale_price"`
	Stock          float64   `json:"stock"`
	Barcode        *string   `json:"barcode,omitempty"`
	ImagePath      *string   `json:"image_path,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page       int
	Limit      int
	Search     string
	CategoryID *int64
	IsActive   *bool
}
