package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// UserRepository is a mock for repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) UpdateLastLogin(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}
