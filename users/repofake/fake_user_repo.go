package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/evaultlabs/evault-server/internal/errors"
	"github.com/evaultlabs/evault-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[int64]*users.User
	lock  sync.RWMutex

	// UpsertCalls counts invocations so tests can assert idempotency
	UpsertCalls int
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[int64]*users.User),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	ur.UpsertCalls++
	copied := *user
	ur.users[user.ID] = &copied
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}
