package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	rl := NewFixedWindowLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if allowed, _ := rl.Allow("10.0.0.1"); !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := rl.Allow("10.0.0.1")
	if allowed {
		t.Fatal("fourth request should be rejected")
	}
	if retryAfter != time.Minute {
		t.Errorf("retryAfter = %v, want %v", retryAfter, time.Minute)
	}
}

func TestAllowTracksClientsSeparately(t *testing.T) {
	rl := NewFixedWindowLimiter(1, time.Minute)

	if allowed, _ := rl.Allow("10.0.0.1"); !allowed {
		t.Fatal("first client should be allowed")
	}
	if allowed, _ := rl.Allow("10.0.0.2"); !allowed {
		t.Fatal("second client should not share the first client's count")
	}
	if allowed, _ := rl.Allow("10.0.0.1"); allowed {
		t.Fatal("first client should be over its limit")
	}
}

func TestWindowResets(t *testing.T) {
	rl := NewFixedWindowLimiter(1, 50*time.Millisecond)

	if allowed, _ := rl.Allow("10.0.0.1"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := rl.Allow("10.0.0.1"); allowed {
		t.Fatal("second request should be rejected")
	}

	time.Sleep(120 * time.Millisecond)

	if allowed, _ := rl.Allow("10.0.0.1"); !allowed {
		t.Fatal("request after the window should be allowed again")
	}
}
