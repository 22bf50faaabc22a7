package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/gauss-project/powerpay/pkg/ratelimit"
)

func TestRateLimit(t *testing.T) {
	var (
		key1  = "test1"
		key2  = "test2"
		rate  = time.Second
		burst = 10
	)

	limiter := ratelimit.New(rate, burst)

	if !limiter.Allow(key1, burst) {
		t.Fatal("want allowed")
	}

	if limiter.Allow(key1, burst) {
		t.Fatalf("want not allowed")
	}

	limiter.Clear(key1)

	if !limiter.Allow(key1, burst) {
		t.Fatal("want allowed")
	}

	if !limiter.Allow(key2, burst) {
		t.Fatal("want allowed")
	}
}

func TestWait(t *testing.T) {
	limiter := ratelimit.New(10*time.Millisecond, 1)

	if d, err := limiter.Wait(context.Background(), "key", 1); err != nil || d != 0 {
		t.Fatalf("got wait %v, %v, want 0, nil", d, err)
	}

	d, err := limiter.Wait(context.Background(), "key", 1)
	if err != nil {
		t.Fatal(err)
	}
	if d <= 0 {
		t.Fatalf("got wait %v, want positive", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limiter.Wait(ctx, "key", 1); err == nil {
		t.Fatal("expected error on canceled context")
	}
}
