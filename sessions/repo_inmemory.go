package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evaultlabs/evault-server/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo, used by
// tests and local runs without a redis instance. Records carry an expiry
// timestamp and are treated as absent once it passes.
type InMemoryRepo struct {
	mu         sync.Mutex
	handshakes map[string]expiring[Handshake]
	sessions   map[string]expiring[Session]
	nowTime    func() time.Time
}

type expiring[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemoryRepoOption modifies an InMemoryRepo instance.
type InMemoryRepoOption func(*InMemoryRepo)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo(options ...InMemoryRepoOption) *InMemoryRepo {
	repo := &InMemoryRepo{
		handshakes: make(map[string]expiring[Handshake]),
		sessions:   make(map[string]expiring[Session]),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(repo)
	}
	return repo
}

var _ Repo = (*InMemoryRepo)(nil)

func (r *InMemoryRepo) PutHandshake(_ context.Context, sessionID string, handshake Handshake, ttl time.Duration) error {
	if sessionID == "" {
		return fmt.Errorf("[InMemoryRepo PutHandshake] sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.handshakes[sessionID]; ok && entry.expiresAt.After(r.nowTime()) {
		return errors.ErrSessionExists
	}
	r.handshakes[sessionID] = expiring[Handshake]{
		value:     handshake,
		expiresAt: r.nowTime().Add(ttl),
	}
	return nil
}

func (r *InMemoryRepo) TakeHandshake(_ context.Context, sessionID string) (Handshake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.handshakes[sessionID]
	if !ok {
		return Handshake{}, errors.ErrHandshakeNotFound
	}
	delete(r.handshakes, sessionID)

	if entry.expiresAt.Before(r.nowTime()) {
		return Handshake{}, errors.ErrHandshakeNotFound
	}
	return entry.value, nil
}

func (r *InMemoryRepo) CreateSession(_ context.Context, session Session, ttl time.Duration) error {
	if session.SessionID == "" {
		return fmt.Errorf("[InMemoryRepo CreateSession] sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.sessions[session.SessionID]; ok && entry.expiresAt.After(r.nowTime()) {
		return errors.ErrSessionExists
	}
	r.sessions[session.SessionID] = expiring[Session]{
		value:     session,
		expiresAt: r.nowTime().Add(ttl),
	}
	return nil
}

func (r *InMemoryRepo) GetSession(_ context.Context, sessionID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok || entry.expiresAt.Before(r.nowTime()) {
		return Session{}, errors.ErrSessionExpired
	}

	session := entry.value
	session.SessionID = sessionID
	return session, nil
}

func (r *InMemoryRepo) RenewSession(_ context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok || entry.expiresAt.Before(r.nowTime()) {
		return errors.ErrSessionExpired
	}
	entry.expiresAt = r.nowTime().Add(ttl)
	r.sessions[sessionID] = entry
	return nil
}

func (r *InMemoryRepo) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
