package github

// AccessToken is the GitHub bearer credential. Its string, debug and JSON
// representations are a fixed placeholder so the real value cannot leak into
// logs or serialized responses by accident. Callers that legitimately need
// the credential (the Authorization header, the session store) must go
// through Reveal.
type AccessToken string

const redactedPlaceholder = "[REDACTED]"

func (t AccessToken) String() string {
	return redactedPlaceholder
}

func (t AccessToken) GoString() string {
	return redactedPlaceholder
}

func (t AccessToken) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Reveal returns the raw credential value.
func (t AccessToken) Reveal() string {
	return string(t)
}

// AuthToken is the bearer credential returned by the GitHub token endpoint.
type AuthToken struct {
	AccessToken AccessToken `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Scope       string      `json:"scope"`
}

// UserProfile is the GitHub account record consumed to populate a session
// and upsert the local user row.
type UserProfile struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatar_url"`
}
