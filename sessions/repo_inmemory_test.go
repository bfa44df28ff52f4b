package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evaultlabs/evault-server/github"
	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/evaultlabs/evault-server/sessions"
	"github.com/stretchr/testify/require"
)

func testSession(id string) sessions.Session {
	return sessions.Session{
		SessionID:     id,
		UserID:        4221,
		UserLogin:     "octocat",
		UserName:      "The Octocat",
		UserAvatarURL: "https://avatars.githubusercontent.com/u/4221",
		Token: github.AuthToken{
			AccessToken: github.AccessToken("gho_testtoken"),
			TokenType:   "bearer",
			Scope:       "repo read:user",
		},
	}
}

func TestInMemoryRepo_Handshake(t *testing.T) {
	ctx := context.Background()

	t.Run("take succeeds exactly once", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		handshake := sessions.Handshake{State: "state-1", DeviceType: "web"}

		require.NoError(t, repo.PutHandshake(ctx, "hs-1", handshake, time.Minute))

		got, err := repo.TakeHandshake(ctx, "hs-1")
		require.NoError(t, err)
		require.Equal(t, handshake, got)

		_, err = repo.TakeHandshake(ctx, "hs-1")
		require.ErrorIs(t, err, errors.ErrHandshakeNotFound)
	})

	t.Run("put does not overwrite a live record", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()

		require.NoError(t, repo.PutHandshake(ctx, "hs-1", sessions.Handshake{State: "a"}, time.Minute))
		err := repo.PutHandshake(ctx, "hs-1", sessions.Handshake{State: "b"}, time.Minute)
		require.ErrorIs(t, err, errors.ErrSessionExists)

		got, err := repo.TakeHandshake(ctx, "hs-1")
		require.NoError(t, err)
		require.Equal(t, "a", got.State)
	})

	t.Run("expired handshake is absent", func(t *testing.T) {
		now := time.Now()
		repo := sessions.NewInMemoryRepo(sessions.WithNowTime(func() time.Time { return now }))

		require.NoError(t, repo.PutHandshake(ctx, "hs-1", sessions.Handshake{State: "a"}, 2*time.Minute))

		now = now.Add(3 * time.Minute)
		_, err := repo.TakeHandshake(ctx, "hs-1")
		require.ErrorIs(t, err, errors.ErrHandshakeNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		_, err := repo.TakeHandshake(ctx, "never-written")
		require.ErrorIs(t, err, errors.ErrHandshakeNotFound)
	})
}

func TestInMemoryRepo_Sessions(t *testing.T) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		session := testSession("sess-1")

		require.NoError(t, repo.CreateSession(ctx, session, time.Minute))

		got, err := repo.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		require.Equal(t, session, got)
	})

	t.Run("create is conditional", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()
		first := testSession("sess-1")

		require.NoError(t, repo.CreateSession(ctx, first, time.Minute))

		second := testSession("sess-1")
		second.UserID = 9999
		err := repo.CreateSession(ctx, second, time.Minute)
		require.ErrorIs(t, err, errors.ErrSessionExists)

		got, err := repo.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		require.Equal(t, first.UserID, got.UserID, "existing session must not be overwritten")
	})

	t.Run("concurrent create-if-absent admits one writer", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()

		const writers = 32
		var wg sync.WaitGroup
		results := make(chan error, writers)

		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- repo.CreateSession(ctx, testSession("sess-race"), time.Minute)
			}()
		}
		wg.Wait()
		close(results)

		var succeeded, rejected int
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			require.ErrorIs(t, err, errors.ErrSessionExists)
			rejected++
		}
		require.Equal(t, 1, succeeded)
		require.Equal(t, writers-1, rejected)
	})

	t.Run("expired session never returns stale data", func(t *testing.T) {
		now := time.Now()
		repo := sessions.NewInMemoryRepo(sessions.WithNowTime(func() time.Time { return now }))

		require.NoError(t, repo.CreateSession(ctx, testSession("sess-1"), 5*time.Minute))

		now = now.Add(6 * time.Minute)
		_, err := repo.GetSession(ctx, "sess-1")
		require.ErrorIs(t, err, errors.ErrSessionExpired)
	})

	t.Run("get does not extend the TTL", func(t *testing.T) {
		now := time.Now()
		repo := sessions.NewInMemoryRepo(sessions.WithNowTime(func() time.Time { return now }))

		require.NoError(t, repo.CreateSession(ctx, testSession("sess-1"), 5*time.Minute))

		now = now.Add(4 * time.Minute)
		_, err := repo.GetSession(ctx, "sess-1")
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, err = repo.GetSession(ctx, "sess-1")
		require.ErrorIs(t, err, errors.ErrSessionExpired)
	})

	t.Run("renew resets the TTL", func(t *testing.T) {
		now := time.Now()
		repo := sessions.NewInMemoryRepo(sessions.WithNowTime(func() time.Time { return now }))

		require.NoError(t, repo.CreateSession(ctx, testSession("sess-1"), 5*time.Minute))

		now = now.Add(4 * time.Minute)
		require.NoError(t, repo.RenewSession(ctx, "sess-1", 5*time.Minute))

		now = now.Add(4 * time.Minute)
		_, err := repo.GetSession(ctx, "sess-1")
		require.NoError(t, err)
	})

	t.Run("delete revokes the session", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo()

		require.NoError(t, repo.CreateSession(ctx, testSession("sess-1"), time.Minute))
		require.NoError(t, repo.DeleteSession(ctx, "sess-1"))

		_, err := repo.GetSession(ctx, "sess-1")
		require.ErrorIs(t, err, errors.ErrSessionExpired)

		// deleting again is a no-op
		require.NoError(t, repo.DeleteSession(ctx, "sess-1"))
	})
}
