package instructor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

// IsInstructor reports whether the user owns an instructor profile.
func IsInstructor(ctx context.Context, db sqlx.ExtContext, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	_, err := FetchByUser(ctx, db, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrDBNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Apply turns the user into an educator. A user who already has a profile
// gets it back unchanged.
func Apply(ctx context.Context, db *sqlx.DB, userID string, app Application) (Instructor, error) {
	if err := validate.Check(app); err != nil {
		return Instructor{}, err
	}

	var in Instructor
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		existing, err := FetchByUser(ctx, tx, userID)
		if err == nil {
			in = existing
			return nil
		}
		if !errors.Is(err, database.ErrDBNotFound) {
			return err
		}

		in = Instructor{
			ID:            validate.GenerateID(),
			UserID:        userID,
			Name:          app.Name,
			Avatar:        app.Avatar,
			Bio:           app.Bio,
			Expertise:     app.Expertise,
			PayoutEmail:   app.PayoutEmail,
			WalletAddress: app.WalletAddress,
			CreatedAt:     time.Now().UTC(),
		}

		if err := Create(ctx, tx, in); err != nil {
			return err
		}

		u, err := user.Fetch(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u.Role == claims.RoleAdmin {
			return nil
		}
		return user.UpdateRole(ctx, tx, userID, claims.RoleInstructor)
	})
	if err != nil {
		return Instructor{}, fmt.Errorf("applying as instructor for user[%s]: %w", userID, err)
	}

	return in, nil
}

// Welcome mails the new educator without blocking the request. It fails
// only when the mail could not be queued.
func Welcome(bg *background.Background, m email.Mailer, in Instructor) error {
	msg := email.InstructorWelcome(in.Name, in.PayoutEmail)
	err := bg.Go("instructor-welcome", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return m.Send(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("queueing welcome mail for instructor[%s]: %w", in.ID, err)
	}
	return nil
}
