package model

import (
	"errors"
	"time"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole maps a stored or claimed role string onto the closed Role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePlayer:
		return RolePlayer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrUnknownRole
	}
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID    string
	Role      Role
	ExpiresAt time.Time
}
