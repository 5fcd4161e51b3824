package auth

import (
	"testing"
	"time"
)

func newTestLimiter(maxAttempts int, now *time.Time) *LoginLimiter {
	l := NewLoginLimiter(maxAttempts)
	l.now = func() time.Time { return *now }
	return l
}

func TestLoginLimiterLocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(3, &now)

	l.RecordFailure("1.2.3.4")
	l.RecordFailure("1.2.3.4")
	if l.RetryAfter("1.2.3.4") != 0 {
		t.Fatal("should not be locked before the last attempt")
	}
	l.RecordFailure("1.2.3.4")
	if got := l.RetryAfter("1.2.3.4"); got != lockDuration {
		t.Fatalf("RetryAfter = %v, want %v", got, lockDuration)
	}
	if l.RetryAfter("5.6.7.8") != 0 {
		t.Fatal("other IPs must not be locked")
	}

	now = now.Add(lockDuration)
	if l.RetryAfter("1.2.3.4") != 0 {
		t.Fatal("lock should expire")
	}
}

func TestLoginLimiterStartsOverAfterLockExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(5, &now)

	for i := 0; i < 5; i++ {
		l.RecordFailure("ip")
	}
	if l.RetryAfter("ip") == 0 {
		t.Fatal("expected lock")
	}

	// ロック明けはウィンドウ内でも数え直す
	now = now.Add(lockDuration + time.Second)
	l.RecordFailure("ip")
	if got := l.RetryAfter("ip"); got != 0 {
		t.Fatalf("single failure after lock expiry relocked for %v", got)
	}
	for i := 0; i < 4; i++ {
		l.RecordFailure("ip")
	}
	if l.RetryAfter("ip") != lockDuration {
		t.Fatal("expected a fresh lock after another full run of failures")
	}
}

func TestLoginLimiterWindowAndReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(2, &now)

	l.RecordFailure("ip")
	now = now.Add(loginWindow + time.Second)
	l.RecordFailure("ip")
	if l.RetryAfter("ip") != 0 {
		t.Fatal("window should restart")
	}

	l.Reset("ip")
	l.RecordFailure("ip")
	if l.RetryAfter("ip") != 0 {
		t.Fatal("reset should clear attempts")
	}
	if got := l.attempts["ip"].count; got != 1 {
		t.Fatalf("count after reset = %d, want 1", got)
	}
}

func TestLoginLimiterDropsStaleEntries(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(2, &now)

	l.RecordFailure("a")
	l.RecordFailure("b")
	l.RecordFailure("b")

	now = now.Add(loginWindow + time.Second)
	l.RecordFailure("c")

	if _, ok := l.attempts["a"]; ok {
		t.Fatal("expired window entry should be dropped")
	}
	if _, ok := l.attempts["b"]; ok {
		t.Fatal("expired lock entry should be dropped")
	}
	if len(l.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(l.attempts))
	}
}

func TestLoginLimiterDisabled(t *testing.T) {
	var nilLimiter *LoginLimiter
	nilLimiter.RecordFailure("ip")
	nilLimiter.Reset("ip")
	if nilLimiter.RetryAfter("ip") != 0 {
		t.Fatal("nil limiter must be a no-op")
	}

	l := NewLoginLimiter(0)
	for i := 0; i < 10; i++ {
		l.RecordFailure("ip")
	}
	if l.RetryAfter("ip") != 0 {
		t.Fatal("disabled limiter must never lock")
	}
}
