package services

import (
	"sync"
	"time"

	"main/utils"

	"github.com/pquerna/otp/totp"
)

type LockState string

const (
	LockStateLocked   LockState = "locked"
	LockStateScanning LockState = "scanning"
	LockStateSuccess  LockState = "success"
	LockStateError    LockState = "error"
)

const defaultErrorReset = 3 * time.Second

// Authenticator is the local unlock check behind the lock overlay. When the
// capability is unavailable the overlay falls back to automatic success
// instead of failing hard.
type Authenticator interface {
	Available() bool
	Authenticate(code string) bool
}

// TOTPAuthenticator unlocks with the user's enrolled TOTP secret.
type TOTPAuthenticator struct {
	Secret string
}

func (a *TOTPAuthenticator) Available() bool {
	return a.Secret != ""
}

func (a *TOTPAuthenticator) Authenticate(code string) bool {
	return totp.Validate(code, a.Secret)
}

// LockOverlay is the locked -> scanning -> success | error machine gating
// the admin surface. It holds no persistence and does not decide when to
// lock; that policy belongs to the surrounding shell.
type LockOverlay struct {
	mu         sync.Mutex
	state      LockState
	auth       Authenticator
	onUnlock   func()
	errorReset time.Duration
	resetTimer *time.Timer
}

func NewLockOverlay(auth Authenticator, onUnlock func()) *LockOverlay {
	return &LockOverlay{
		state:      LockStateLocked,
		auth:       auth,
		onUnlock:   onUnlock,
		errorReset: defaultErrorReset,
	}
}

func (l *LockOverlay) State() LockState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Begin runs the user-initiated unlock attempt. It only transitions out of
// the locked state; calls in any other state return the current state
// unchanged. Success is terminal and hands control to the onUnlock callback.
func (l *LockOverlay) Begin(code string) LockState {
	l.mu.Lock()

	if l.state != LockStateLocked {
		state := l.state
		l.mu.Unlock()
		return state
	}

	l.state = LockStateScanning

	ok := true
	if l.auth != nil && l.auth.Available() {
		ok = l.auth.Authenticate(code)
	}

	if ok {
		l.state = LockStateSuccess
		utils.TrackAuthAttempt("success", "unlock")
		callback := l.onUnlock
		l.mu.Unlock()
		if callback != nil {
			callback()
		}
		return LockStateSuccess
	}

	l.state = LockStateError
	utils.TrackAuthAttempt("failure", "unlock")
	l.resetTimer = time.AfterFunc(l.errorReset, func() {
		l.mu.Lock()
		if l.state == LockStateError {
			l.state = LockStateLocked
		}
		l.mu.Unlock()
	})
	l.mu.Unlock()
	return LockStateError
}

// Relock returns the machine to the locked state. No-op while scanning.
func (l *LockOverlay) Relock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LockStateScanning {
		return
	}
	if l.resetTimer != nil {
		l.resetTimer.Stop()
		l.resetTimer = nil
	}
	l.state = LockStateLocked
}
