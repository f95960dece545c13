package identikit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/identikit/identikit/storage"
)

func TestBuildRequiresStorage(t *testing.T) {
	_, err := New().WithBaseURL("http://auth.local").Build()
	if err == nil {
		t.Fatal("expected storage requirement error")
	}
}

func TestBuildRequiresBaseURLWithoutInjectedAPI(t *testing.T) {
	_, err := New().WithStorage(storage.NewMemoryBackend()).Build()
	if err == nil {
		t.Fatal("expected base URL requirement error")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OTP.Digits = 4

	_, err := New().
		WithConfig(cfg).
		WithBaseURL("http://auth.local").
		WithStorage(storage.NewMemoryBackend()).
		Build()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithBaseURL("http://auth.local").WithStorage(storage.NewMemoryBackend())

	flow, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(flow.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildWithRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	flow, err := New().
		WithBaseURL("http://auth.local").
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(flow.Close)

	// device identity lands in redis under the configured prefix
	rec, err := flow.Sessions().Device(context.Background())
	if err != nil {
		t.Fatalf("device lookup failed: %v", err)
	}
	if rec.DeviceID == "" {
		t.Fatal("empty device id")
	}
	keys := mr.Keys()
	if len(keys) == 0 {
		t.Fatal("no keys written to redis")
	}
}

func TestBuildWithSQLitePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://auth.local"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "client.db")

	flow, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(flow.Close)

	if flow.State() != JourneyLanding {
		t.Fatalf("expected landing, got %s", flow.State())
	}
}

func TestExplicitStorageWinsOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := storage.NewMemoryBackend()
	flow, err := New().
		WithBaseURL("http://auth.local").
		WithStorage(mem).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(flow.Close)

	if _, err := flow.Sessions().Device(context.Background()); err != nil {
		t.Fatalf("device lookup failed: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatal("redis written despite explicit backend")
	}
}
