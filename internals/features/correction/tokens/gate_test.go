package tokens

import (
	"context"
	"testing"
	"time"

	model "longessay_backend/internals/features/correction/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestGate() (*Gate, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	g := NewGate(NewMemoryStore(), time.Hour, 24*time.Hour)
	g.Now = c.now
	return g, c
}

func TestGate_IssueThenCheck(t *testing.T) {
	g, _ := newTestGate()
	ctx := context.Background()

	v, err := g.Issue(ctx, "u1", model.TokenPurposeData)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	st, err := g.Check(ctx, "u1", model.TokenPurposeData, v)
	if err != nil || st != StatusCurrent {
		t.Errorf("Expected current token, got %v (%v)", st, err)
	}
}

func TestGate_InvalidateMakesOldValueStale(t *testing.T) {
	g, _ := newTestGate()
	ctx := context.Background()

	old, _ := g.Issue(ctx, "u1", model.TokenPurposeData)
	fresh, err := g.Invalidate(ctx, "u1", model.TokenPurposeData)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if fresh == old {
		t.Fatalf("Expected a different value after invalidation")
	}
	if st, _ := g.Check(ctx, "u1", model.TokenPurposeData, old); st != StatusStale {
		t.Errorf("Expected old token to be stale, got %v", st)
	}
	if st, _ := g.Check(ctx, "u1", model.TokenPurposeData, fresh); st != StatusCurrent {
		t.Errorf("Expected new token to be current, got %v", st)
	}
}

func TestGate_PurposesAreIndependent(t *testing.T) {
	g, _ := newTestGate()
	ctx := context.Background()

	file, _ := g.Issue(ctx, "u1", model.TokenPurposeFile)
	_, _ = g.Issue(ctx, "u1", model.TokenPurposeData)
	_, _ = g.Invalidate(ctx, "u1", model.TokenPurposeData)

	if st, _ := g.Check(ctx, "u1", model.TokenPurposeFile, file); st != StatusCurrent {
		t.Errorf("Expected file token untouched by data invalidation, got %v", st)
	}
}

func TestGate_ExpiryAndRefresh(t *testing.T) {
	g, c := newTestGate()
	ctx := context.Background()

	v, _ := g.Issue(ctx, "u1", model.TokenPurposeData)

	c.t = c.t.Add(50 * time.Minute)
	reissued, err := g.Refresh(ctx, "u1", model.TokenPurposeData)
	if err != nil || reissued != "" {
		t.Fatalf("Expected refresh to keep the value, got %q (%v)", reissued, err)
	}

	c.t = c.t.Add(50 * time.Minute)
	if st, _ := g.Check(ctx, "u1", model.TokenPurposeData, v); st != StatusCurrent {
		t.Errorf("Expected refreshed token to still be current, got %v", st)
	}

	c.t = c.t.Add(2 * time.Hour)
	if st, _ := g.Check(ctx, "u1", model.TokenPurposeData, v); st != StatusExpired {
		t.Errorf("Expected expired token, got %v", st)
	}
	reissued, _ = g.Refresh(ctx, "u1", model.TokenPurposeData)
	if reissued == "" {
		t.Errorf("Expected refresh of an expired token to issue a new one")
	}
}

func TestGate_UnknownUserIsExpired(t *testing.T) {
	g, _ := newTestGate()
	if st, _ := g.Check(context.Background(), "nobody", model.TokenPurposeData, "x"); st != StatusExpired {
		t.Errorf("Expected expired for unknown user, got %v", st)
	}
}

func TestGate_Purge(t *testing.T) {
	g, c := newTestGate()
	ctx := context.Background()
	_, _ = g.Issue(ctx, "u1", model.TokenPurposeData)
	_, _ = g.Issue(ctx, "u1", model.TokenPurposeFile)

	c.t = c.t.Add(2 * time.Hour)
	n, err := g.Purge(ctx)
	if err != nil || n != 1 {
		t.Errorf("Expected exactly the data token to be purged, got %d (%v)", n, err)
	}
}
