package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB, size int) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page := web.QueryInt(r, "page", 1)

		p, err := List(ctx, db, page, size)
		if err != nil {
			return fmt.Errorf("listing courses page[%d]: %w", page, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleFeatured(db *sqlx.DB, n int) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cs, err := Featured(ctx, db, n)
		if err != nil {
			return fmt.Errorf("listing featured courses: %w", err)
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		slug := web.Param(r, "slug")

		c, err := FetchBySlug(ctx, db, slug)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", slug, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleMakeAllFree(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		n, err := MakeAllFree(ctx, db)
		if err != nil {
			return err
		}

		resp := struct {
			Updated int `json:"updated"`
		}{n}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		in, err := instructor.FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.Forbidden(errors.New("only instructors can publish courses"))
			}
			return err
		}

		c, err := Create(ctx, db, in, cn)
		if err != nil {
			if errors.Is(err, validate.ErrInvalid) {
				return weberr.Invalid(err)
			}
			return err
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}
