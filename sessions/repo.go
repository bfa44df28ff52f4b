// Package sessions owns the two TTL-bound record kinds of the login flow:
// the short-lived handshake state written before redirecting to GitHub, and
// the authenticated session minted after a successful callback.
package sessions

import (
	"context"
	"time"

	"github.com/evaultlabs/evault-server/github"
)

// Handshake is the transient record written at redirect time and consumed
// exactly once at callback time.
type Handshake struct {
	State      string `json:"state"`
	DeviceType string `json:"device_type"`
}

// Session is the authenticated-identity record. SessionID is the store key
// and is never serialized into the record value. The bearer token inside is
// a secret; its value reaches the store only through an explicit accessor.
type Session struct {
	SessionID     string
	UserID        int64
	UserLogin     string
	UserName      string
	UserAvatarURL string
	Token         github.AuthToken
}

// Repo is the capability interface over the ephemeral store. Implementations
// must keep TakeHandshake and CreateSession atomic: a concurrent duplicate
// callback must not be able to consume one handshake twice or overwrite a
// live session.
//
// Absent/expired records surface as the sentinel errors in internal/errors
// (ErrHandshakeNotFound, ErrSessionExpired, ErrSessionExists); any other
// error means the store itself failed.
type Repo interface {
	// PutHandshake writes a handshake record with the given TTL. It fails
	// rather than overwriting if the key is already present.
	PutHandshake(ctx context.Context, sessionID string, handshake Handshake, ttl time.Duration) error

	// TakeHandshake atomically reads and deletes the handshake record. A
	// second call with the same id fails; this is the single-use guarantee.
	TakeHandshake(ctx context.Context, sessionID string) (Handshake, error)

	// CreateSession conditionally creates the session record, setting the TTL
	// atomically with the write. It fails if a record already exists under
	// the key.
	CreateSession(ctx context.Context, session Session, ttl time.Duration) error

	// GetSession resolves a session id. It does not extend the TTL.
	GetSession(ctx context.Context, sessionID string) (Session, error)

	// RenewSession resets the session TTL. Used only when the sliding-session
	// policy is enabled.
	RenewSession(ctx context.Context, sessionID string, ttl time.Duration) error

	// DeleteSession removes the session record. Deleting an absent session is
	// not an error.
	DeleteSession(ctx context.Context, sessionID string) error
}
