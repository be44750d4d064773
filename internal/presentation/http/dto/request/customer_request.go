package request

// CreateCustomerRequest represents a customer creation request
type CreateCustomerRequest struct {
	Name    string  `json:"name" binding:"required,max=200"`
	Phone   string  `json:"phone" binding:"required,max=20"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Address *string `json:"address"`
}

// UpdateCustomerRequest represents a customer update request
type UpdateCustomerRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone" binding:"omitempty,min=1,max=20"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Address *string `json:"address"`
}

// ListRequest is the common search plus page query
type ListRequest struct {
	Search  string `form:"q"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}
