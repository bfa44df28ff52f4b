package users

import "context"

type Repo interface {
	// Upsert creates the user row or refreshes its profile fields. Calling it
	// again with the same id is safe.
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
}
