package instructor

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
)

const selectInstructor = `
	SELECT
		i.instructor_id, COALESCE(i.user_id, '') AS user_id, i.name, i.avatar, i.bio,
		i.expertise, i.payout_email, i.wallet_address, i.created_at,
		(SELECT COUNT(*) FROM courses c WHERE c.instructor_id = i.instructor_id) AS course_count
	FROM instructors i`

func Create(ctx context.Context, db sqlx.ExtContext, in Instructor) error {
	const q = `
	INSERT INTO instructors
		(instructor_id, user_id, name, avatar, bio, expertise, payout_email, wallet_address, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := database.Exec(ctx, db, q,
		in.ID, database.Nullable(in.UserID), in.Name, in.Avatar, in.Bio,
		in.Expertise, in.PayoutEmail, in.WalletAddress, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting instructor: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Instructor, error) {
	var in Instructor
	if err := database.Get(ctx, db, &in, selectInstructor+` WHERE i.instructor_id = ?`, id); err != nil {
		return Instructor{}, fmt.Errorf("selecting instructor[%s]: %w", id, err)
	}
	return in, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) (Instructor, error) {
	var in Instructor
	if err := database.Get(ctx, db, &in, selectInstructor+` WHERE i.user_id = ?`, userID); err != nil {
		return Instructor{}, fmt.Errorf("selecting instructor of user[%s]: %w", userID, err)
	}
	return in, nil
}

func Count(ctx context.Context, db sqlx.ExtContext) (int, error) {
	var n int
	if err := database.Get(ctx, db, &n, `SELECT COUNT(*) FROM instructors`); err != nil {
		return 0, fmt.Errorf("counting instructors: %w", err)
	}
	return n, nil
}
