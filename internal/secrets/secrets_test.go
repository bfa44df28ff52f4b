package secrets_test

import (
	"net/url"
	"testing"

	"github.com/evaultlabs/evault-server/internal/secrets"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	t.Run("url safe output", func(t *testing.T) {
		tok, err := secrets.Token(32)
		require.NoError(t, err)
		require.NotEmpty(t, tok)
		require.Equal(t, tok, url.QueryEscape(tok), "token must not require query escaping")
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			tok, err := secrets.Token(16)
			require.NoError(t, err)
			require.False(t, seen[tok], "generated a duplicate token")
			seen[tok] = true
		}
	})

	t.Run("invalid length", func(t *testing.T) {
		_, err := secrets.Token(0)
		require.Error(t, err)

		_, err = secrets.Token(-8)
		require.Error(t, err)
	})
}
