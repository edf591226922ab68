package checkout

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	limiter := NewRateLimiter(5*time.Minute, 3)

	for i := 0; i < 3; i++ {
		allowed, remaining := limiter.Admit("10.0.0.0")
		if !allowed {
			t.Fatalf("Attempt %d should be allowed", i+1)
		}
		if remaining != 3-i-1 {
			t.Errorf("Attempt %d: expected remaining %d, got %d", i+1, 3-i-1, remaining)
		}
	}

	allowed, remaining := limiter.Admit("10.0.0.0")
	if allowed {
		t.Error("Fourth attempt should be rejected")
	}
	if remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", remaining)
	}
}

func TestRateLimiterIsolatesKeys(t *testing.T) {
	limiter := NewRateLimiter(5*time.Minute, 1)

	if allowed, _ := limiter.Admit("10.0.0.0"); !allowed {
		t.Fatal("First key should be allowed")
	}
	if allowed, _ := limiter.Admit("10.0.1.0"); !allowed {
		t.Error("Different key should have its own window")
	}
	if allowed, _ := limiter.Admit("10.0.0.0"); allowed {
		t.Error("First key should be exhausted")
	}
}

func TestRateLimiterWindowResetsLazily(t *testing.T) {
	limiter := NewRateLimiter(5*time.Minute, 1)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	if allowed, _ := limiter.Admit("10.0.0.0"); !allowed {
		t.Fatal("First attempt should be allowed")
	}
	if allowed, _ := limiter.Admit("10.0.0.0"); allowed {
		t.Fatal("Second attempt in window should be rejected")
	}

	current = current.Add(5*time.Minute + time.Second)

	if allowed, _ := limiter.Admit("10.0.0.0"); !allowed {
		t.Error("Attempt after window expiry should be allowed")
	}
}

func TestMaskClientKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.77:54321", "203.0.113.0"},
		{"203.0.113.77", "203.0.113.0"},
		{"[2001:db8:1:2:3:4:5:6]:443", "2001:db8:1:2::"},
		{"not-an-ip", "not-an-ip"},
	}

	for _, tc := range cases {
		if got := MaskClientKey(tc.in); got != tc.want {
			t.Errorf("MaskClientKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
