package repository

import (
	"context"
	"errors"
	"fmt"

	"survey-drafts/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKVRepositoryImpl stores keys in the kv_entries table through GORM.
// Learning: This is the IMPLEMENTATION. The drafts package declares the
// small Get/Set interface it needs.
type GormKVRepositoryImpl struct {
	db *gorm.DB
}

// NewGormKVRepository creates a new relational key-value repository
// Returns concrete type - "Accept interfaces, return structs"
func NewGormKVRepository(db *gorm.DB) *GormKVRepositoryImpl {
	return &GormKVRepositoryImpl{db: db}
}

// Get returns nil, nil when the key has no row
func (r *GormKVRepositoryImpl) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry

	err := r.db.WithContext(ctx).
		Select("value").
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv entry %s: %w", key, err)
	}

	return []byte(entry.Value), nil
}

// Set upserts the value; UpdatedAt is maintained by GORM
func (r *GormKVRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	entry := &models.KVEntry{
		Key:   key,
		Value: datatypes.JSON(value),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to set kv entry %s: %w", key, err)
	}

	return nil
}
