// file: internals/features/correction/tokens/store.go
package tokens

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	model "longessay_backend/internals/features/correction/model"
)

var ErrNoToken = errors.New("no token issued")

// Store persists one current token hash per (user, purpose).
type Store interface {
	Get(ctx context.Context, userKey string, purpose model.TokenPurpose) (*model.AccessTokenModel, error)
	Save(ctx context.Context, t *model.AccessTokenModel) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

/* =========================
   GORM
========================= */

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

func (s *GormStore) Get(ctx context.Context, userKey string, purpose model.TokenPurpose) (*model.AccessTokenModel, error) {
	var t model.AccessTokenModel
	err := s.DB.WithContext(ctx).
		First(&t, "token_user_key = ? AND token_purpose = ?", userKey, purpose).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) Save(ctx context.Context, t *model.AccessTokenModel) error {
	return s.DB.WithContext(ctx).Save(t).Error
}

func (s *GormStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("token_valid_until < ?", before).
		Delete(&model.AccessTokenModel{})
	return res.RowsAffected, res.Error
}

/* =========================
   memory
========================= */

type memKey struct {
	user    string
	purpose model.TokenPurpose
}

type MemoryStore struct {
	mu   sync.Mutex
	rows map[memKey]model.AccessTokenModel
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[memKey]model.AccessTokenModel{}}
}

func (s *MemoryStore) Get(_ context.Context, userKey string, purpose model.TokenPurpose) (*model.AccessTokenModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[memKey{userKey, purpose}]
	if !ok {
		return nil, ErrNoToken
	}
	return &t, nil
}

func (s *MemoryStore) Save(_ context.Context, t *model.AccessTokenModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[memKey{t.TokenUserKey, t.TokenPurpose}] = *t
	return nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, t := range s.rows {
		if t.TokenValidUntil.Before(before) {
			delete(s.rows, k)
			n++
		}
	}
	return n, nil
}
