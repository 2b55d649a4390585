package tokenstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"heirloom/models"
)

// Store persists revoked JTIs so logouts survive restarts and are visible to
// every instance. Lookups are memoized in-process.
type Store struct {
	db *gorm.DB

	mu      sync.RWMutex
	revoked map[string]time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, revoked: map[string]time.Time{}}
}

func (s *Store) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	row := models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.revoked[jti] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	s.mu.RLock()
	_, ok := s.revoked[jti]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}

	var row models.RevokedToken
	err := s.db.WithContext(ctx).Where("jti = ?", jti).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.revoked[jti] = row.ExpiresAt
	s.mu.Unlock()
	return true, nil
}

// PruneExpired drops revocations whose tokens can no longer validate anyway.
func (s *Store) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	s.mu.Lock()
	for jti, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, jti)
		}
	}
	s.mu.Unlock()
	return res.RowsAffected, nil
}
