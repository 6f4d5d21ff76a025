package categories

type CategoryForm struct {
	Name string `json:"name" validate:"required,max=100"`
}
