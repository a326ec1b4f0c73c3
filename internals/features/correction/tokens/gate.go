// file: internals/features/correction/tokens/gate.go
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	model "longessay_backend/internals/features/correction/model"
)

type Status int

const (
	StatusCurrent Status = iota
	StatusStale
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusCurrent:
		return "current"
	case StatusStale:
		return "stale"
	default:
		return "expired"
	}
}

/*
Gate hands out opaque freshness tokens.

  - data token: task/catalogue structure; new on snapshot reads, refreshed on
    item reads, rotated after every successful mutation
  - file token: binary resources; refreshed independently

A token carries no payload. The only guarantee is that a value is no longer
current after Invalidate.
*/
type Gate struct {
	Store   Store
	DataTTL time.Duration
	FileTTL time.Duration

	Now func() time.Time
}

func NewGate(store Store, dataTTL, fileTTL time.Duration) *Gate {
	return &Gate{Store: store, DataTTL: dataTTL, FileTTL: fileTTL, Now: time.Now}
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

func (g *Gate) ttl(p model.TokenPurpose) time.Duration {
	if p == model.TokenPurposeFile {
		return g.FileTTL
	}
	return g.DataTTL
}

func newValue(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 36) + "." + uuid.NewString()
}

// Issue replaces the current token of (user, purpose) with a new one.
func (g *Gate) Issue(ctx context.Context, userKey string, purpose model.TokenPurpose) (string, error) {
	now := g.now()
	value := newValue(now)
	hash, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	row := &model.AccessTokenModel{
		TokenUserKey:    userKey,
		TokenPurpose:    purpose,
		TokenHash:       string(hash),
		TokenIssuedAt:   now,
		TokenValidUntil: now.Add(g.ttl(purpose)),
	}
	if err := g.Store.Save(ctx, row); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return value, nil
}

// Refresh extends the validity of the current token and keeps its value.
// When there is nothing to extend a new token is issued and returned;
// otherwise the returned value is empty.
func (g *Gate) Refresh(ctx context.Context, userKey string, purpose model.TokenPurpose) (string, error) {
	row, err := g.Store.Get(ctx, userKey, purpose)
	if errors.Is(err, ErrNoToken) {
		return g.Issue(ctx, userKey, purpose)
	}
	if err != nil {
		return "", err
	}
	now := g.now()
	if now.After(row.TokenValidUntil) {
		return g.Issue(ctx, userKey, purpose)
	}
	row.TokenValidUntil = now.Add(g.ttl(purpose))
	if err := g.Store.Save(ctx, row); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	return "", nil
}

// Invalidate rotates the token; the previous value becomes stale.
func (g *Gate) Invalidate(ctx context.Context, userKey string, purpose model.TokenPurpose) (string, error) {
	value, err := g.Issue(ctx, userKey, purpose)
	if err != nil {
		log.Printf("[TokenGate] invalidate user=%s purpose=%s failed: %v", userKey, purpose, err)
		return "", err
	}
	return value, nil
}

// Check tells whether value is still the current token of (user, purpose).
func (g *Gate) Check(ctx context.Context, userKey string, purpose model.TokenPurpose, value string) (Status, error) {
	row, err := g.Store.Get(ctx, userKey, purpose)
	if errors.Is(err, ErrNoToken) {
		return StatusExpired, nil
	}
	if err != nil {
		return StatusExpired, err
	}
	if g.now().After(row.TokenValidUntil) {
		return StatusExpired, nil
	}
	if value == "" || bcrypt.CompareHashAndPassword([]byte(row.TokenHash), []byte(value)) != nil {
		return StatusStale, nil
	}
	return StatusCurrent, nil
}

// Purge drops rows that expired before now.
func (g *Gate) Purge(ctx context.Context) (int64, error) {
	return g.Store.PurgeExpired(ctx, g.now())
}
