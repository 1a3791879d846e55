package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
)

const columns = `user_id, name, email, password_hash, role, created_at, updated_at`

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	INSERT INTO users (user_id, name, email, password_hash, role, created_at, updated_at)
	VALUES (:user_id, :name, :email, :password_hash, :role, :created_at, :updated_at)`

	u.Email = strings.ToLower(u.Email)
	if err := database.NamedExec(ctx, db, q, u); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	var u User
	q := `SELECT ` + columns + ` FROM users WHERE user_id = ?`
	if err := database.Get(ctx, db, &u, q, id); err != nil {
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}
	return u, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	var u User
	q := `SELECT ` + columns + ` FROM users WHERE email = ?`
	if err := database.Get(ctx, db, &u, q, strings.ToLower(email)); err != nil {
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	return u, nil
}

func UpdateRole(ctx context.Context, db sqlx.ExtContext, id string, role string) error {
	const q = `UPDATE users SET role = ?, updated_at = ? WHERE user_id = ?`

	n, err := database.Exec(ctx, db, q, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating role of user[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating role of user[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}
