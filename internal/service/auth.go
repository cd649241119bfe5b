package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// AuthService is the identity provider: it issues tokens on register/login
// and resolves presented tokens back to an account. The rest of the system
// only ever asks it two questions: which username does this token belong to,
// and is that user an admin.
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
	}, nil
}

// Register creates an account and returns it together with a fresh token.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	logCtx := logrus.WithField("username", username)

	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, "", fmt.Errorf("%w: username must be at least 3 characters", ErrInvalidAction)
	}
	if len(password) < 4 {
		return nil, "", fmt.Errorf("%w: password must be at least 4 characters", ErrInvalidAction)
	}

	hash, err := HashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, "", ErrStorage
	}

	user := &domain.User{Username: username, Password: hash}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Registration failed: username already exists")
			return nil, "", ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, "", ErrStorage
	}

	token, err := s.generateJWT(user.Username)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate token after registration")
		return nil, "", ErrStorage
	}

	logCtx.WithField("user_id", user.ID).Info("User registered")
	user.Password = ""
	return user, token, nil
}

// Login verifies credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		return nil, "", ErrAuthenticationFailed
	}
	if !CheckPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return nil, "", ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user.Username)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate token during login")
		return nil, "", ErrStorage
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.Username); err != nil {
		// Not worth failing the login over.
		logCtx.WithError(err).Warn("Failed to stamp last login")
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in")
	user.Password = ""
	return user, token, nil
}

// Resolve maps a presented token to its account. The returned user carries
// the IsAdmin flag; invalid, expired or orphaned tokens all come back as
// ErrAuthenticationFailed.
func (s *AuthService) Resolve(ctx context.Context, tokenStr string) (*domain.User, error) {
	if tokenStr == "" {
		return nil, ErrAuthenticationFailed
	}
	claims, err := s.validateJWT(tokenStr)
	if err != nil {
		logrus.WithError(err).Debug("Token validation failed")
		return nil, ErrAuthenticationFailed
	}
	username, _ := claims["username"].(string)
	if username == "" {
		logrus.Error("Token carries no username claim")
		return nil, ErrAuthenticationFailed
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logrus.WithField("username", username).Warn("Token resolved to a deleted account")
			return nil, ErrAuthenticationFailed
		}
		logrus.WithError(err).WithField("username", username).Error("Failed to load user during token resolve")
		return nil, ErrStorage
	}
	user.Password = ""
	return user, nil
}

func (s *AuthService) generateJWT(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(s.jwtExpiry).Unix(),
		"iat":      time.Now().Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) validateJWT(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}

// HashPassword bcrypt-hashes a password. Used for both account passwords
// and room passwords.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("generate hash from password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
