package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

// ErrEmailTaken is returned by Create when the email is already bound to a user.
var ErrEmailTaken = errors.New("email already registered")

// UserRepository is the identity store. Lookups return (nil, nil) when the
// user does not exist; errors are reserved for store failures.
type UserRepository interface {
	// Create writes a new user and fails if the email is already bound.
	Create(ctx context.Context, u *entity.User) error
	// Save writes the full record and its email index together.
	Save(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ListAll(ctx context.Context) ([]*entity.User, error)
}

// UserIndex is a secondary search index over users.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}
