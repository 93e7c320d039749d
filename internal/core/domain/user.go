package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	// RolePrefix marks a role as an authority understood by downstream services.
	RolePrefix = "ROLE_"
)

// User models a registered account. Username is unique across the store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeRole ensures role carries RolePrefix. Applying it twice is a no-op.
// An empty role is treated as RoleUser.
func NormalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		role = RoleUser
	}
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}
