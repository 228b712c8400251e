// Package users holds the account records behind login. Authorization never
// reads this package at request time; everything a request needs is carried in
// the access token claims.
package users

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	Role         string
	CompanyID    string
	OrganizerID  string
	LastLoginAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
