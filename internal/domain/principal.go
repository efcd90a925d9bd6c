package domain

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleCustomer Role = "Customer"
	RoleAirline  Role = "Airline"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// RequireAdmin returns a ForbiddenError unless p is an administrator.
func (p Principal) RequireAdmin() error {
	if !p.IsAdmin() {
		return ForbiddenError{Msg: "require admin role"}
	}
	return nil
}
