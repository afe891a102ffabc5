package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/caldesk/caldesk/internal/utils"
	"github.com/google/uuid"
)

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
}

type UserServiceImpl struct {
	repo  Repo
	clock utils.Clock
}

func NewUserService(repo Repo, clock utils.Clock) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, clock: clock}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.repo.GetUser(ctx, userId)
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id string) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	if strings.TrimSpace(user.Username) == "" {
		return User{}, fmt.Errorf("username must not be empty")
	}
	user.ID = uuid.NewString()
	user.CreatedAt = u.clock.Now().UTC()
	if err := u.repo.CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}
