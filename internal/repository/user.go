package repository

import (
	"context"

	"airlink/internal/domain"
)

// UserRepository defines the persistence operations for customer accounts.
type UserRepository interface {
	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Create persists a new user.
	Create(ctx context.Context, user *domain.User) error
}
