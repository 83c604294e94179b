// Package store persists the last-used playback settings as key/value pairs
// in a local sqlite database. Semantics are last-write-wins; there are no
// durability guarantees beyond that.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	keySpeed = "speed"
	keyPitch = "pitch"

	// DefaultSpeed and DefaultPitch are returned when a key was never written.
	DefaultSpeed = 1.0
	DefaultPitch = 0
)

type setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (setting) TableName() string { return "settings" }

// Store is a sqlite-backed settings store.
type Store struct {
	db *gorm.DB
}

// Open opens (and migrates) the settings database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if err := db.AutoMigrate(&setting{}); err != nil {
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var row setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *Store) put(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Save(&setting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Speed returns the persisted playback speed, or DefaultSpeed when unset.
func (s *Store) Speed(ctx context.Context) (float64, error) {
	raw, ok, err := s.get(ctx, keySpeed)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultSpeed, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse speed %q: %w", raw, err)
	}
	return v, nil
}

// PutSpeed stores the playback speed.
func (s *Store) PutSpeed(ctx context.Context, speed float64) error {
	return s.put(ctx, keySpeed, strconv.FormatFloat(speed, 'f', -1, 64))
}

// Pitch returns the persisted pitch shift in semitones, or DefaultPitch
// when unset.
func (s *Store) Pitch(ctx context.Context) (int, error) {
	raw, ok, err := s.get(ctx, keyPitch)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultPitch, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse pitch %q: %w", raw, err)
	}
	return v, nil
}

// PutPitch stores the pitch shift in semitones.
func (s *Store) PutPitch(ctx context.Context, semitones int) error {
	return s.put(ctx, keyPitch, strconv.Itoa(semitones))
}
