package user

import (
	"context"
	"sync"
)

// RepoStub is an in-memory Repo for tests.
type RepoStub struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewRepoStub() *RepoStub {
	return &RepoStub{users: make(map[string]User)}
}

func (r *RepoStub) CreateUser(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *RepoStub) GetUser(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *RepoStub) GetUserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}
