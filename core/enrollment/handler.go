package enrollment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		rs, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, rs, http.StatusOK)
	}
}

func HandleCheck(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		ok, err := Check(ctx, db, clm.UserID, courseID)
		if err != nil {
			return fmt.Errorf("checking enrollment in course[%s]: %w", courseID, err)
		}

		resp := struct {
			Enrolled bool `json:"enrolled"`
		}{ok}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleUpdateProgress(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		e, err := UpdateProgress(ctx, db, clm.UserID, courseID, up)
		if err != nil {
			switch {
			case errors.Is(err, validate.ErrInvalid):
				return weberr.Invalid(err)
			case errors.Is(err, database.ErrDBNotFound):
				return weberr.NotFound(errors.New("not enrolled in this course"))
			}
			return err
		}

		return web.Respond(ctx, w, e, http.StatusOK)
	}
}
