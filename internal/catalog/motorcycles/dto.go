package motorcycles

type MotorcycleForm struct {
	Name           string  `json:"name" validate:"required,max=200"`
	ModelYear      *int    `json:"model_year,omitempty" validate:"omitempty,gte=1950,lte=2100"`
	Color          *string `json:"color,omitempty" validate:"omitempty,max=50"`
	ChassisNumber  *string `json:"chassis_number,omitempty" validate:"omitempty,max=100"`
	EngineNumber   *string `json:"engine_number,omitempty" validate:"omitempty,max=100"`
	RetailPrice    float64 `json:"retail_price" validate:"gte=0"`
	WholesalePrice float64 `json:"wholesale_price" validate:"gte=0"`
	Stock          float64 `json:"stock" validate:"gte=0"`
	ImagePath      *string `json:"image_path,omitempty" validate:"omitempty,max=300"`
	IsActive       bool    `json:"is_active"`
}
