package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	GetHandshakeTTL() time.Duration
	GetSessionTTL() time.Duration
	GetRenewSessionOnUse() bool
}

type Session struct{}

var _ SessionConfig = Session{}

// GetHandshakeTTL bounds the window between issuing the GitHub redirect and
// the provider calling back.
func (Session) GetHandshakeTTL() time.Duration {
	return durationEnv("HANDSHAKE_TTL_SECONDS", 120*time.Second)
}

// GetSessionTTL bounds the lifetime of an authenticated session record.
func (Session) GetSessionTTL() time.Duration {
	return durationEnv("SESSION_TTL_SECONDS", 300*time.Second)
}

// GetRenewSessionOnUse selects the sliding-session policy: when true, every
// successful session resolution resets the TTL, so only idle users are
// logged out. When false the window is fixed and active users must
// re-authenticate after it elapses.
func (Session) GetRenewSessionOnUse() bool {
	return GetEnv("SESSION_RENEW_ON_USE", "false") == "true"
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}
