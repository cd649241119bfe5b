package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// GormEditRepository implements repository.EditRepository on MySQL.
type GormEditRepository struct {
	db *gorm.DB
}

func NewGormEditRepository(db *gorm.DB) *GormEditRepository {
	if db == nil {
		panic("database connection cannot be nil for GormEditRepository")
	}
	return &GormEditRepository{db: db}
}

func (r *GormEditRepository) SaveBatch(ctx context.Context, records []domain.EditRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("gorm: save %d edit records: %w", len(records), err)
	}
	return nil
}
