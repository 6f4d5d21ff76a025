package products

type ProductForm struct {
	Code           string  `json:"code" validate:"required,max=50"`
	Name           string  `json:"name" validate:"required,max=200"`
	CategoryID     *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	RetailPrice    float64 `json:"retail_price" validate:"gte=0"`
	WholesalePrice float64 `json:"wholesale_price" validate:"gte=0"`
	Stock          float64 `json:"stock" validate:"gte=0"`
	Barcode        *string `json:"barcode,omitempty" validate:"omitempty,max=100"`
	ImagePath      *string `json:"image_path,omitempty" validate:"omitempty,max=300"`
	IsActive       bool    `json:"is_active"`
}
