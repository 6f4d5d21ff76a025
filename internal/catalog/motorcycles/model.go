package motorcycles

import "time"

// Motorcycle is a serialized vehicle record. Unlike products a motorcycle
// carries identity fields (chassis and engine numbers); chassis numbers
// are unique across the table.
type Motorcycle struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ModelYear      *int      `json:"model_year,omitempty"`
	Color          *string   `json:"color,omitempty"`
	ChassisNumber  *string   `json:"chassis_number,omitempty"`
	EngineNumber   *string   `json:"engine_number,omitempty"`
	RetailPrice    float64   `json:"retail_price"`
	WholesalePrice float64   `json:"wholesale_price"`
	Stock          float64   `json:"stock"`
	ImagePath      *string   `json:"image_path,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListFilters represents list page filters.
type ListFilters struct {
	Page      int
	Limit     int
	Search    string
	ModelYear *int
	IsActive  *bool
}
