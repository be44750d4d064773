package request

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// CreateUserRequest is the admin request to add a staff account
type CreateUserRequest struct {
	Username  string  `json:"username" binding:"required,min=3,max=150"`
	Password  string  `json:"password" binding:"required,min=8"`
	FirstName string  `json:"first_name" binding:"max=150"`
	LastName  string  `json:"last_name" binding:"max=150"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Role      string  `json:"role" binding:"omitempty,oneof=cashier admin"`
}

// SetActiveRequest activates or deactivates a staff account
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
