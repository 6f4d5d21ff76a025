package customers

type CustomerForm struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Notes    *string `json:"notes,omitempty"`
	IsActive bool    `json:"is_active"`
}
