package cache

import (
	"context"
	"testing"

	"taller_backend/internal/settings/transport"
	"taller_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, logger.New("development")), mr
}

func TestGetMissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx); ok {
		t.Fatal("empty cache must miss")
	}

	resp := &transport.SettingsResponse{
		ID:              uuid.New(),
		CompanyName:     "Taller Central",
		FeaturesEnabled: map[string]bool{transport.FeatureOutsourcing: true},
		RequiredFields:  map[string]bool{transport.FieldSerialNumber: false},
		Source:          transport.SourceServer,
	}
	c.Set(ctx, resp)

	cached, ok := c.Get(ctx)
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if cached.Source != transport.SourceCache {
		t.Fatalf("source = %q, want %q", cached.Source, transport.SourceCache)
	}
	if cached.CompanyName != "Taller Central" {
		t.Fatalf("company name = %q", cached.CompanyName)
	}
	if !cached.FeaturesEnabled[transport.FeatureOutsourcing] {
		t.Fatal("feature flags must round-trip")
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, &transport.SettingsResponse{ID: uuid.New(), CompanyName: "Taller Central"})
	c.Invalidate(ctx)

	if _, ok := c.Get(ctx); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestCorruptEntryIsDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	mr.Set("taller:settings", "{not json")

	if _, ok := c.Get(ctx); ok {
		t.Fatal("corrupt entry must miss")
	}
	if mr.Exists("taller:settings") {
		t.Fatal("corrupt entry must be deleted")
	}
}

func TestNilClientAlwaysMisses(t *testing.T) {
	c := New(nil, logger.New("development"))
	ctx := context.Background()

	c.Set(ctx, &transport.SettingsResponse{CompanyName: "Taller Central"})
	if _, ok := c.Get(ctx); ok {
		t.Fatal("nil client must always miss")
	}
}
