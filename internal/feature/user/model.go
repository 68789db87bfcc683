package user

import "change-request-tracker/internal/domain"

const (
	MinPasswordLen   = 8
	// bcrypt rejects longer input
	MaxPasswordBytes = 72
)

// Identity is what a successful login hands to the caller.
type Identity struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
	Name string      `json:"name"`
}

func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

type SeedUser struct {
	ID       string
	Name     string
	Password string
	Role     domain.Role
}

// DefaultSeed is written once, when the users collection is empty.
var DefaultSeed = []SeedUser{
	{ID: "admin", Name: "Admin", Password: "adminpassword", Role: domain.RoleAdmin},
	{ID: "asmith", Name: "Alice Smith", Password: "password123", Role: domain.RoleUser},
	{ID: "bjohnson", Name: "Bob Johnson", Password: "password123", Role: domain.RoleUser},
	{ID: "cbrown", Name: "Charlie Brown", Password: "password123", Role: domain.RoleUser},
	{ID: "dprince", Name: "Diana Prince", Password: "password123", Role: domain.RoleUser},
}
