package ratelimit

import "testing"

func TestAllow_DisabledAlwaysAllows(t *testing.T) {
	l := New(Config{Enabled: false})
	for i := 0; i < 100; i++ {
		if !l.Allow("client-a").Allowed {
			t.Fatal("expected disabled limiter to always allow")
		}
	}
}

func TestAllow_BurstThenReject(t *testing.T) {
	l := New(Config{Enabled: true, IntervalMs: 60_000, MaxRequests: 10, Burst: 3})
	for i := 0; i < 3; i++ {
		if !l.Allow("client-a").Allowed {
			t.Fatalf("expected request %d within burst to be allowed", i)
		}
	}
	res := l.Allow("client-a")
	if res.Allowed {
		t.Fatal("expected request beyond burst to be rejected")
	}
	if res.RetryAfterMs <= 0 {
		t.Error("expected a positive retryAfterMs")
	}
}

func TestAllow_PerClientIsolation(t *testing.T) {
	l := New(Config{Enabled: true, IntervalMs: 60_000, MaxRequests: 10, Burst: 1})
	if !l.Allow("client-a").Allowed {
		t.Fatal("expected client-a first request to be allowed")
	}
	if !l.Allow("client-b").Allowed {
		t.Fatal("expected client-b to have its own independent bucket")
	}
	if l.Allow("client-a").Allowed {
		t.Fatal("expected client-a second request within the same window to be rejected")
	}
}
