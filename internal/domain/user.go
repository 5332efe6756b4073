package domain

import (
	"context"
	"time"
)

// Role determines what a user is allowed to administer.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Plan is the subscription tier a user is on. Tiers gate how many
// businesses the user may register; the limits themselves live in config.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// User represents an account holder. The password hash is owned by the
// auth service and is never serialized into API responses.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Plan         Plan
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
