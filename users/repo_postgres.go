package users

import (
	"context"
	"fmt"
	"time"

	"github.com/evaultlabs/evault-server/internal/config"
	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo is the production Repo implementation over a bounded pgx pool.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo connects to postgres and verifies the connection. The pool
// is bounded; acquisition blocks with a timeout instead of growing under
// load.
func NewPostgresRepo(ctx context.Context, cfg config.StoreConfig) (*PostgresRepo, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetPostgresURL())
	if err != nil {
		return nil, fmt.Errorf("[NewPostgresRepo] parsing connection string: %w", err)
	}
	poolCfg.MaxConns = 15
	poolCfg.MinConns = 2
	poolCfg.MaxConnIdleTime = 10 * time.Minute
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("[NewPostgresRepo] creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[NewPostgresRepo] pinging postgres: %w", err)
	}
	return &PostgresRepo{pool: pool}, nil
}

var _ Repo = (*PostgresRepo)(nil)

func (r *PostgresRepo) Upsert(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, login, email, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			login = EXCLUDED.login,
			email = EXCLUDED.email,
			name = EXCLUDED.name;
	`, user.ID, user.Login, user.Email, user.Name)
	if err != nil {
		return errors.Wrapf(err, "[PostgresRepo Upsert] upserting user %d", user.ID)
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, login, email, name
		FROM users
		WHERE id = $1;
	`, id).Scan(&user.ID, &user.Login, &user.Email, &user.Name)
	if err == pgx.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[PostgresRepo GetByID] querying user %d", id)
	}
	return &user, nil
}

// Ping reports whether the store is reachable.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (r *PostgresRepo) Close() {
	r.pool.Close()
}
