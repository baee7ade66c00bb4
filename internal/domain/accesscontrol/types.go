package accesscontrol

import "time"

// RoleName is the closed set of roles a user can hold. A user may hold
// several; Resolve picks the one that governs a request.
type RoleName string

const (
	RoleCustomer   RoleName = "customer"
	RoleStaff      RoleName = "staff"
	RoleAdmin      RoleName = "admin"
	RoleSuperAdmin RoleName = "superadmin"
)

// priority orders roles from weakest to strongest. Unknown role names map to
// zero so they can never outrank a real role.
var priority = map[RoleName]int{
	RoleCustomer:   1,
	RoleStaff:      2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// Valid reports whether name is one of the four known roles.
func (n RoleName) Valid() bool {
	_, ok := priority[n]
	return ok
}

// Priority returns the role's rank in the total order; higher wins.
func (n RoleName) Priority() int {
	return priority[n]
}

// AtLeast reports whether n grants everything min grants.
func (n RoleName) AtLeast(min RoleName) bool {
	return priority[n] >= priority[min]
}

// Resolve returns the highest-priority role in names. An empty set resolves
// to customer rather than erroring, so a user without role rows still gets a
// working account.
func Resolve(names []RoleName) RoleName {
	resolved := RoleCustomer
	for _, n := range names {
		if n.Priority() > resolved.Priority() {
			resolved = n
		}
	}
	return resolved
}

type Role struct {
	ID          int64     `json:"id"`
	Name        RoleName  `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UserRole struct {
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	AssignedAt time.Time `json:"assigned_at"`
}
