// Package auth coordinates the GitHub login handshake: issuing the redirect,
// validating the provider callback and minting the authenticated session.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/evaultlabs/evault-server/github"
	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/evaultlabs/evault-server/internal/secrets"
	"github.com/evaultlabs/evault-server/sessions"
	"github.com/evaultlabs/evault-server/users"
	"github.com/rs/zerolog/log"
)

// Token byte lengths. The per-handshake id only needs to be unique for the
// handshake window; the state and the issued session id are credentials and
// carry the full 256 bits.
const (
	stateByteLength       = 32
	handshakeIDByteLength = 16
	sessionIDByteLength   = 32
)

// ProviderClient is the identity-provider surface the handshake needs.
type ProviderClient interface {
	LoginURL(state, sessionID, deviceType string) (string, error)
	ExchangeCode(ctx context.Context, code string) (github.AuthToken, error)
	FetchProfile(ctx context.Context, token github.AuthToken) (github.UserProfile, error)
}

// Service orchestrates the handshake. All state lives in the injected
// stores; the service itself holds nothing beyond a single request's
// lifetime, so replicas need no coordination.
type Service struct {
	provider ProviderClient
	sessions sessions.Repo
	users    users.Repo

	handshakeTTL  time.Duration
	sessionTTL    time.Duration
	generateToken func(int) (string, error) // injectable for testing
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithTokenGenerator sets the token source (primarily for testing)
func WithTokenGenerator(gen func(int) (string, error)) ServiceOption {
	return func(s *Service) {
		s.generateToken = gen
	}
}

// NewService initializes the handshake service with required dependencies.
func NewService(
	cfg config.SessionConfig,
	provider ProviderClient,
	sessionRepo sessions.Repo,
	userRepo users.Repo,
	options ...ServiceOption,
) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("[NewService] provider client is required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("[NewService] sessions repo is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("[NewService] users repo is required")
	}

	service := &Service{
		provider:      provider,
		sessions:      sessionRepo,
		users:         userRepo,
		handshakeTTL:  cfg.GetHandshakeTTL(),
		sessionTTL:    cfg.GetSessionTTL(),
		generateToken: secrets.Token,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// Begin mints the CSRF state and handshake id, persists the handshake record
// and returns the GitHub authorization URL to redirect the browser to. No
// session exists yet.
func (s *Service) Begin(ctx context.Context, deviceType string) (string, error) {
	state, err := s.generateToken(stateByteLength)
	if err != nil {
		return "", errors.Wrapf(err, "[Service Begin] generating state")
	}
	sessionID, err := s.generateToken(handshakeIDByteLength)
	if err != nil {
		return "", errors.Wrapf(err, "[Service Begin] generating handshake id")
	}

	loginURL, err := s.provider.LoginURL(state, sessionID, deviceType)
	if err != nil {
		return "", errors.Wrapf(err, "[Service Begin] building login URL")
	}

	handshake := sessions.Handshake{State: state, DeviceType: deviceType}
	if err := s.sessions.PutHandshake(ctx, sessionID, handshake, s.handshakeTTL); err != nil {
		return "", errors.Wrapf(err, "[Service Begin] persisting handshake")
	}

	return loginURL, nil
}

// CallbackParams are the query values GitHub round-trips to the callback.
type CallbackParams struct {
	SessionID  string
	DeviceType string
	Code       string
	State      string
}

// Complete validates the provider callback and mints the session.
//
// The handshake record is consumed before anything else, so a replayed
// callback fails even if it carries the correct state. The issued session id
// is a fresh credential, never the handshake id.
func (s *Service) Complete(ctx context.Context, params CallbackParams) (sessions.Session, error) {
	handshake, err := s.sessions.TakeHandshake(ctx, params.SessionID)
	if errors.Is(err, errors.ErrHandshakeNotFound) {
		log.Warn().Str("handshake_id", params.SessionID).Msg("callback for absent or expired handshake")
		return sessions.Session{}, errors.Unauthorized("Authentication failed.")
	}
	if err != nil {
		return sessions.Session{}, errors.Wrapf(err, "[Service Complete] consuming handshake")
	}

	// Full-string constant-time comparison; a single differing character
	// rejects the callback.
	if subtle.ConstantTimeCompare([]byte(handshake.State), []byte(params.State)) != 1 {
		log.Warn().Str("handshake_id", params.SessionID).Msg("oauth state mismatch")
		return sessions.Session{}, errors.Unauthorized("Invalid credentials.")
	}

	token, err := s.provider.ExchangeCode(ctx, params.Code)
	if err != nil {
		return sessions.Session{}, err
	}

	profile, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		return sessions.Session{}, err
	}

	sessionID, err := s.generateToken(sessionIDByteLength)
	if err != nil {
		return sessions.Session{}, errors.Wrapf(err, "[Service Complete] generating session id")
	}

	session := sessions.Session{
		SessionID:     sessionID,
		UserID:        profile.ID,
		UserLogin:     profile.Login,
		UserName:      profile.Name,
		UserAvatarURL: profile.AvatarURL,
		Token:         token,
	}
	if err := s.sessions.CreateSession(ctx, session, s.sessionTTL); err != nil {
		if errors.Is(err, errors.ErrSessionExists) {
			log.Warn().Msg("session id collision on create")
			return sessions.Session{}, errors.Unauthorized("Failed to create user session.")
		}
		return sessions.Session{}, errors.Wrapf(err, "[Service Complete] creating session")
	}

	if err := s.users.Upsert(ctx, &users.User{
		ID:    profile.ID,
		Login: profile.Login,
		Email: profile.Email,
		Name:  profile.Name,
	}); err != nil {
		return sessions.Session{}, errors.Wrapf(err, "[Service Complete] upserting user")
	}

	return session, nil
}
