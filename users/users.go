// Package users is the relational collaborator of the login flow: a single
// idempotent upsert keyed by the GitHub user id.
package users

// User is the local row mirroring a GitHub account.
type User struct {
	ID    int64
	Login string
	Email *string
	Name  string
}
