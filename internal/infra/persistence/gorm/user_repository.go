package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// GormUserRepository implements repository.UserRepository on MySQL.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user '%s': %w", username, err)
	}
	return &user, nil
}

func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save user '%s': %w", user.Username, err)
	}
	return nil
}

func (r *GormUserRepository) UpdateLastLogin(ctx context.Context, username string) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).
		Update("last_login", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("gorm: update last login for '%s': %w", username, err)
	}
	return nil
}
