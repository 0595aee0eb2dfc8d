package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/amtracker/internal/domain"
)

// StateStore persists named, JSON-encoded slots. SaveMany writes all of its
// slots or none of them.
type StateStore interface {
	Load(ctx context.Context, key string) (value string, found bool, err error)
	Save(ctx context.Context, key, value string) error
	SaveMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStateStore keeps slots in a map. Used by tests and the CLI's --ephemeral mode.
type MemoryStateStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemoryStateStore creates an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{slots: make(map[string]string)}
}

func (s *MemoryStateStore) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok, nil
}

func (s *MemoryStateStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.slots[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) SaveMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.slots[k] = v
	}
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()
	return nil
}

// GormStateStore keeps slots in the state_slots table.
type GormStateStore struct {
	db *gorm.DB
}

// NewGormStateStore creates a store bound to db. The state_slots table must exist.
func NewGormStateStore(db *gorm.DB) *GormStateStore {
	return &GormStateStore{db: db}
}

// Load returns the raw value of a slot; found is false when the slot was never written.
func (s *GormStateStore) Load(ctx context.Context, key string) (string, bool, error) {
	var slot domain.StateSlot
	err := s.db.WithContext(ctx).First(&slot, "slot_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load slot %s: %w", key, err)
	}
	return slot.Value, true, nil
}

// Save upserts one slot.
func (s *GormStateStore) Save(ctx context.Context, key, value string) error {
	return upsertSlot(s.db.WithContext(ctx), key, value)
}

// SaveMany upserts every slot in a single transaction.
func (s *GormStateStore) SaveMany(ctx context.Context, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, k := range keys {
			if err := upsertSlot(tx, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a slot. Deleting a missing slot is not an error.
func (s *GormStateStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&domain.StateSlot{}, "slot_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

func upsertSlot(db *gorm.DB, key, value string) error {
	slot := domain.StateSlot{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&slot).Error
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", key, err)
	}
	return nil
}
