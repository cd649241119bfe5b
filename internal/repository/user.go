package repository

import (
	"context"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// UserRepository stores registered accounts.
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound when no such account exists.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// Save creates the user when ID is zero, updates it otherwise. Returns
	// ErrDuplicateEntry on a username collision.
	Save(ctx context.Context, user *domain.User) error

	// UpdateLastLogin stamps the account's last successful login.
	UpdateLastLogin(ctx context.Context, username string) error
}
