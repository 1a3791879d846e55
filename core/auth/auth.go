// Package auth registers users, verifies credentials and keeps the signed in
// user in the session or in a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register validates un and stores a new user with the USER role.
func Register(ctx context.Context, db sqlx.ExtContext, un user.UserNew, cost int) (user.User, error) {
	if err := validate.Check(un); err != nil {
		return user.User{}, err
	}

	hash, err := HashPassword(un.Password, cost)
	if err != nil {
		return user.User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           validate.GenerateID(),
		Name:         un.Name,
		Email:        un.Email,
		PasswordHash: hash,
		Role:         claims.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(ctx, db, u); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return user.User{}, ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

// Verify returns the user owning the credentials.
func Verify(ctx context.Context, db sqlx.ExtContext, cred Credentials) (user.User, error) {
	if err := validate.Check(cred); err != nil {
		return user.User{}, ErrInvalidCredentials
	}

	u, err := user.FetchByEmail(ctx, db, cred.Email)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}

	if u.PasswordHash == "" {
		return user.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cred.Password)); err != nil {
		return user.User{}, ErrInvalidCredentials
	}

	return u, nil
}
