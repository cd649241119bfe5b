package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository/mocks"
	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

func TestAuthService_Register_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(mockUserRepo, "very-secret-key", 1)
	require.NoError(t, err)

	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"

	// The matcher is re-invoked by AssertExpectations after Register has
	// cleared user.Password on the same pointer, so capture the hash at call
	// time and assert on it once below instead of inside the matcher.
	var savedHash string
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		assert.Equal(t, username, user.Username)
		if savedHash == "" {
			savedHash = user.Password
		}
		return true
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 5
		}).
		Return(nil).
		Once()

	user, token, err := authService.Register(ctx, username, password)

	assert.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(savedHash), []byte(password)), "password should be hashed")
	require.NotNil(t, user)
	assert.Equal(t, uint(5), user.ID)
	assert.Equal(t, username, user.Username)
	assert.Empty(t, user.Password, "returned user must not carry the hash")
	assert.NotEmpty(t, token)

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.Anything).Return(repository.ErrDuplicateEntry).Once()

	_, _, err := authService.Register(ctx, "existingUser", "password")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_RejectsShortCredentials(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	_, _, err := authService.Register(ctx, "ab", "password")
	assert.True(t, errors.Is(err, service.ErrInvalidAction), "short username must be rejected")

	_, _, err = authService.Register(ctx, "valid", "abc")
	assert.True(t, errors.Is(err, service.ErrInvalidAction), "short password must be rejected")

	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Login_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	hash, err := service.HashPassword("correct-horse")
	require.NoError(t, err)
	stored := &domain.User{ID: 7, Username: "rider", Password: hash, IsAdmin: true}

	mockUserRepo.On("FindByUsername", ctx, "rider").Return(stored, nil).Once()
	mockUserRepo.On("UpdateLastLogin", ctx, "rider").Return(nil).Once()

	user, token, err := authService.Login(ctx, "rider", "correct-horse")

	assert.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsAdmin)
	assert.Empty(t, user.Password)
	assert.NotEmpty(t, token)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	hash, _ := service.HashPassword("correct-horse")
	stored := &domain.User{ID: 7, Username: "rider", Password: hash}
	mockUserRepo.On("FindByUsername", ctx, "rider").Return(stored, nil).Once()

	_, _, err := authService.Login(ctx, "rider", "wrong-horse")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
}

func TestAuthService_Resolve_RoundTrip(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
	_, token, err := authService.Register(ctx, "roundtrip", "password")
	require.NoError(t, err)

	stored := &domain.User{ID: 3, Username: "roundtrip", IsAdmin: false}
	mockUserRepo.On("FindByUsername", ctx, "roundtrip").Return(stored, nil).Once()

	user, err := authService.Resolve(ctx, token)

	assert.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "roundtrip", user.Username)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Resolve_RejectsGarbageToken(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)

	_, err := authService.Resolve(context.Background(), "not-a-jwt")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestAuthService_Resolve_DeletedAccount(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
	_, token, err := authService.Register(ctx, "ghost", "password")
	require.NoError(t, err)

	mockUserRepo.On("FindByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound).Once()

	_, err = authService.Resolve(ctx, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertExpectations(t)
}
