package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "events")
		if err != nil {
			t.Errorf("Allow() error = %v, want nil", err)
		}
		if !allowed {
			t.Error("Allow() = false, want true")
		}
	}

	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	if _, err := NewRedisRateLimiter("not-a-url", 10, time.Minute); err == nil {
		t.Error("NewRedisRateLimiter() error = nil, want invalid URL error")
	}
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 3, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()

	// First three requests pass
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "commands")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	// Fourth is over the limit
	allowed, err := limiter.Allow(ctx, "commands")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("request over limit allowed, want denied")
	}
}

func TestRedisRateLimiter_KeysAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 1, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "events"); !allowed {
		t.Fatal("first events request denied")
	}
	if allowed, _ := limiter.Allow(ctx, "events"); allowed {
		t.Error("second events request allowed, want denied")
	}

	// A different endpoint has its own window
	if allowed, _ := limiter.Allow(ctx, "commands"); !allowed {
		t.Error("commands request denied, want allowed")
	}
}
