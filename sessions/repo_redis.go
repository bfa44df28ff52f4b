package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evaultlabs/evault-server/github"
	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	handshakeKeyPrefix = "evault-auth-session:"
	sessionKeyPrefix   = "evault-user-session:"
)

// RedisRepo is the production Repo implementation over a bounded redis pool.
// Expiry is enforced entirely by redis TTLs; there is no local sweeper.
type RedisRepo struct {
	client *redis.Client
}

// NewRedisRepo connects to redis and verifies the connection with a ping.
func NewRedisRepo(ctx context.Context, cfg config.StoreConfig) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.GetRedisAddr(),
		PoolSize:        15,
		MinIdleConns:    5,
		PoolTimeout:     30 * time.Second,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnMaxLifetime: time.Hour,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("[NewRedisRepo] pinging redis: %w", err)
	}
	return &RedisRepo{client: client}, nil
}

var _ Repo = (*RedisRepo)(nil)

// sessionRecord is the wire shape of a session value. It is distinct from
// Session so that the bearer token only crosses into plain text through
// Reveal, here and nowhere else.
type sessionRecord struct {
	UserID        int64  `json:"user.id"`
	UserLogin     string `json:"user.login"`
	UserName      string `json:"user.name"`
	UserAvatarURL string `json:"user.avatar_url"`
	TokenValue    string `json:"token.value"`
	TokenType     string `json:"token.type"`
	TokenScope    string `json:"token.scope"`
}

func (r *RedisRepo) PutHandshake(ctx context.Context, sessionID string, handshake Handshake, ttl time.Duration) error {
	if sessionID == "" {
		return fmt.Errorf("[RedisRepo PutHandshake] sessionID is required")
	}
	payload, err := json.Marshal(handshake)
	if err != nil {
		return errors.Wrapf(err, "[RedisRepo PutHandshake] marshalling handshake")
	}

	// SET NX EX: create-if-absent with the TTL applied in the same command.
	ok, err := r.client.SetNX(ctx, handshakeKeyPrefix+sessionID, payload, ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "[RedisRepo PutHandshake] writing handshake")
	}
	if !ok {
		return fmt.Errorf("[RedisRepo PutHandshake] handshake id collision: %w", errors.ErrSessionExists)
	}
	return nil
}

func (r *RedisRepo) TakeHandshake(ctx context.Context, sessionID string) (Handshake, error) {
	// GETDEL makes read-and-consume a single operation: a replayed callback
	// observes an absent key no matter how the two requests interleave.
	payload, err := r.client.GetDel(ctx, handshakeKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return Handshake{}, errors.ErrHandshakeNotFound
	}
	if err != nil {
		return Handshake{}, errors.Wrapf(err, "[RedisRepo TakeHandshake] reading handshake")
	}

	var handshake Handshake
	if err := json.Unmarshal([]byte(payload), &handshake); err != nil {
		return Handshake{}, errors.Wrapf(err, "[RedisRepo TakeHandshake] unmarshalling handshake")
	}
	return handshake, nil
}

func (r *RedisRepo) CreateSession(ctx context.Context, session Session, ttl time.Duration) error {
	if session.SessionID == "" {
		return fmt.Errorf("[RedisRepo CreateSession] sessionID is required")
	}
	record := sessionRecord{
		UserID:        session.UserID,
		UserLogin:     session.UserLogin,
		UserName:      session.UserName,
		UserAvatarURL: session.UserAvatarURL,
		TokenValue:    session.Token.AccessToken.Reveal(),
		TokenType:     session.Token.TokenType,
		TokenScope:    session.Token.Scope,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "[RedisRepo CreateSession] marshalling session")
	}

	ok, err := r.client.SetNX(ctx, sessionKeyPrefix+session.SessionID, payload, ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "[RedisRepo CreateSession] writing session")
	}
	if !ok {
		return errors.ErrSessionExists
	}
	return nil
}

func (r *RedisRepo) GetSession(ctx context.Context, sessionID string) (Session, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return Session{}, errors.ErrSessionExpired
	}
	if err != nil {
		return Session{}, errors.Wrapf(err, "[RedisRepo GetSession] reading session")
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return Session{}, errors.Wrapf(err, "[RedisRepo GetSession] unmarshalling session")
	}
	return Session{
		SessionID:     sessionID,
		UserID:        record.UserID,
		UserLogin:     record.UserLogin,
		UserName:      record.UserName,
		UserAvatarURL: record.UserAvatarURL,
		Token: github.AuthToken{
			AccessToken: github.AccessToken(record.TokenValue),
			TokenType:   record.TokenType,
			Scope:       record.TokenScope,
		},
	}, nil
}

func (r *RedisRepo) RenewSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	ok, err := r.client.Expire(ctx, sessionKeyPrefix+sessionID, ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "[RedisRepo RenewSession] setting expiry")
	}
	if !ok {
		return errors.ErrSessionExpired
	}
	return nil
}

func (r *RedisRepo) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return errors.Wrapf(err, "[RedisRepo DeleteSession] deleting session")
	}
	return nil
}

// Ping reports whether the store is reachable.
func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}
