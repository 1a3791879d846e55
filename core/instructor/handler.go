package instructor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/auth"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

func HandleStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ok, err := IsInstructor(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("checking instructor status: %w", err)
		}

		resp := struct {
			Instructor bool `json:"instructor"`
		}{ok}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleApply(db *sqlx.DB, sm *scs.SessionManager, bg *background.Background, m email.Mailer, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var app Application
		if err := web.Decode(w, r, &app); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		existed, err := IsInstructor(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("checking instructor status: %w", err)
		}

		in, err := Apply(ctx, db, clm.UserID, app)
		if err != nil {
			switch {
			case errors.Is(err, validate.ErrInvalid):
				return weberr.Invalid(err)
			case errors.Is(err, database.ErrDBNotFound):
				return weberr.NotFound(err)
			}
			return err
		}

		if !existed {
			if clm.Role != claims.RoleAdmin {
				auth.SetRole(ctx, sm, claims.RoleInstructor)
			}
			if err := Welcome(bg, m, in); err != nil {
				log.WithError(err).WithField("instructor", in.ID).Warn("welcome mail not sent")
			}
		}

		return web.Respond(ctx, w, in, http.StatusCreated)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		in, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching instructor[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, in, http.StatusOK)
	}
}
