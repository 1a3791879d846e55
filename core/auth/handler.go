package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager, cost int) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		u, err := Register(ctx, db, un, cost)
		if err != nil {
			switch {
			case errors.Is(err, ErrEmailTaken):
				return weberr.Conflict(err)
			case errors.Is(err, validate.ErrInvalid):
				return weberr.Invalid(err)
			}
			return fmt.Errorf("registering user: %w", err)
		}

		if err := Login(ctx, sm, u); err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		u, err := Verify(ctx, db, cred)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				return weberr.NotAuthorized(err)
			}
			return fmt.Errorf("verifying credentials: %w", err)
		}

		if err := Login(ctx, sm, u); err != nil {
			return err
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := Logout(ctx, sm); err != nil {
			return err
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleToken exchanges credentials for a bearer token.
func HandleToken(db *sqlx.DB, tokens *Tokens) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		u, err := Verify(ctx, db, cred)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				return weberr.NotAuthorized(err)
			}
			return fmt.Errorf("verifying credentials: %w", err)
		}

		tok, exp, err := tokens.Issue(u.ID, u.Role)
		if err != nil {
			return err
		}

		resp := struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expiresAt"`
		}{tok, exp}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
