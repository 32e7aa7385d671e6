package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/drewfead/moviebuddy/internal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type kvItem struct {
	Key   string `gorm:"column:item_key;primaryKey;size:255"`
	Value string `gorm:"column:item_value;type:text;not null"`
}

func (kvItem) TableName() string { return "kv_items" }

type sqliteStorage struct {
	db *gorm.DB
}

// SQLite stores items in the kv_items table of db, creating it when missing.
func SQLite(db *gorm.DB) (internal.Storage, error) {
	if err := db.AutoMigrate(&kvItem{}); err != nil {
		return nil, fmt.Errorf("migrate kv_items: %w", err)
	}
	return &sqliteStorage{db: db}, nil
}

func openSQLite(_ context.Context, u *url.URL) (internal.Storage, error) {
	dsn := urlPath(u)
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return SQLite(db)
}

func (s *sqliteStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var item kvItem
	err := s.db.WithContext(ctx).Where("item_key = ?", key).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value, true, nil
}

func (s *sqliteStorage) SetItem(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_value"}),
	}).Create(&kvItem{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *sqliteStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("item_key = ?", key).Delete(&kvItem{}).Error; err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
