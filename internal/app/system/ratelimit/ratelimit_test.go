package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, limit int, d time.Duration) (*Limiter, *time.Time) {
	t.Helper()
	l := New(limit, d)
	t.Cleanup(l.Stop)
	now := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllow_WindowAndExpiry(t *testing.T) {
	l, now := newTestLimiter(t, 2, time.Minute)

	if !l.Allow("owner") || !l.Allow("owner") {
		t.Fatal("first two requests should be allowed")
	}
	if l.Allow("owner") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("other") {
		t.Fatal("keys are independent")
	}
	if got := l.Remaining("owner"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
	if got := l.RetryAfter("owner"); got != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", got)
	}

	*now = now.Add(61 * time.Second)
	if !l.Allow("owner") {
		t.Fatal("request after the window should be allowed")
	}
	if got := l.Remaining("owner"); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
}

func TestRetryAfter_UnknownKey(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	if l.RetryAfter("unknown") != 0 {
		t.Error("unknown key should not wait")
	}
	if got := l.Remaining("unknown"); got != 1 {
		t.Errorf("Remaining = %d, want the full limit", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(1, time.Millisecond)
	l.Stop()
	l.Stop()
}
