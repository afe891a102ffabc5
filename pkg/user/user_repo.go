package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Repo interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}

type UserRepoImpl struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) error {
	query := `INSERT INTO users (id, username, display_name, created_at) VALUES ($1, $2, $3, $4)`
	_, err := u.db.ExecContext(ctx, query, user.ID, user.Username, user.DisplayName, user.CreatedAt.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not insert user: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id string) (User, error) {
	query := `SELECT id, username, display_name, created_at FROM users WHERE id = $1`
	return u.scanUser(u.db.QueryRowContext(ctx, query, id))
}

func (u *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT id, username, display_name, created_at FROM users WHERE username = $1`
	return u.scanUser(u.db.QueryRowContext(ctx, query, username))
}

func (u *UserRepoImpl) scanUser(row *sql.Row) (User, error) {
	var user User
	var createdMillis int64
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &createdMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not scan user: %w", err)
		log.Error(err)
		return User{}, err
	}
	user.CreatedAt = time.UnixMilli(createdMillis).UTC()
	return user, nil
}
