package domain

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User is a stored account. IDs are kept lower-cased; see NormalizeUserID.
type User struct {
	ID           string `gorm:"primaryKey;size:64" json:"id"`
	Name         string `gorm:"size:128;not null" json:"name"`
	PasswordHash string `gorm:"size:191;not null" json:"-"`
	Role         Role   `gorm:"size:16;not null;default:user" json:"role"`
}

func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NormalizeUserID is the identity key used for uniqueness and lookups.
func NormalizeUserID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }

type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	// SeedIfEmpty writes all users in one transaction when the collection is
	// empty and reports whether it did.
	SeedIfEmpty(ctx context.Context, users []User) (bool, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
