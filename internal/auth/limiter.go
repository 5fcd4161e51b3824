package auth

import (
	"sync"
	"time"
)

var (
	loginWindow  = 15 * time.Minute
	lockDuration = 10 * time.Minute
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// expired はウィンドウとロックの両方が終わっているかを返します。
// ロックが明けた記録もここで期限切れとみなし、次の失敗から数え直します。
func (s *attemptState) expired(now time.Time) bool {
	if !s.lockedUntil.IsZero() {
		return !now.Before(s.lockedUntil)
	}
	return now.Sub(s.firstAttempt) > loginWindow
}

// LoginLimiter はクライアントIPごとのログイン失敗回数を数え、上限に達したIPを一定時間ロックします。
// maxAttempts が 0 以下の場合は何も制限しません。
type LoginLimiter struct {
	maxAttempts int
	now         func() time.Time

	lock      sync.Mutex
	attempts  map[string]*attemptState
	lastSweep time.Time
}

// NewLoginLimiter は LoginLimiter を作成します。
func NewLoginLimiter(maxAttempts int) *LoginLimiter {
	return &LoginLimiter{
		maxAttempts: maxAttempts,
		now:         time.Now,
		attempts:    make(map[string]*attemptState),
	}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.maxAttempts > 0
}

// RetryAfter はロック中であれば残り時間を返します。ロックされていなければ 0 です。
func (l *LoginLimiter) RetryAfter(ip string) time.Duration {
	if !l.enabled() {
		return 0
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[ip]
	if !ok {
		return 0
	}
	now := l.now()
	if !now.Before(state.lockedUntil) {
		return 0
	}
	return state.lockedUntil.Sub(now)
}

// RecordFailure は失敗を記録し、上限に達したらロックします。
func (l *LoginLimiter) RecordFailure(ip string) {
	if !l.enabled() {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	l.sweep(now)

	state, ok := l.attempts[ip]
	if !ok || state.expired(now) {
		state = &attemptState{firstAttempt: now}
		l.attempts[ip] = state
	}

	state.count++
	if state.count >= l.maxAttempts {
		state.lockedUntil = now.Add(lockDuration)
	}
}

// Reset は成功時に記録を消去します。
func (l *LoginLimiter) Reset(ip string) {
	if !l.enabled() {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, ip)
}

// sweep は期限切れの記録を削除します。走査はウィンドウ長ごとに一度だけ行います。
// 呼び出し側でロックを取得していること。
func (l *LoginLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < loginWindow {
		return
	}
	l.lastSweep = now
	for ip, state := range l.attempts {
		if state.expired(now) {
			delete(l.attempts, ip)
		}
	}
}
