// Package repo: this file provides the storage.Store implementation over the
// kv_entries table.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

// KVStore persists whole-value blobs, one row per key.
type KVStore struct {
	db *gorm.DB
}

// NewKVStore returns a Store backed by db. The schema must already be
// migrated (see AutoMigrate).
func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the stored value or storage.ErrNotFound.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e domain.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite get %s: %w", storage.ErrUnavailable, key, err)
	}
	return e.Value, nil
}

// Set upserts key with value (last writer wins).
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	e := domain.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("%w: sqlite set %s: %w", storage.ErrUnavailable, key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("%w: sqlite delete %s: %w", storage.ErrUnavailable, key, err)
	}
	return nil
}

var _ storage.Store = (*KVStore)(nil)
