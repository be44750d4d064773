package enum

// UserRole controls which API groups a staff member may use
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCashier UserRole = "cashier"
)

func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleCashier
}

func (r UserRole) String() string {
	return string(r)
}
